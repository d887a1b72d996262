package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/floramarket/florabot/internal/domain"
	"github.com/floramarket/florabot/internal/i18n"
	"github.com/floramarket/florabot/internal/repository"
	"github.com/floramarket/florabot/internal/response"
	"github.com/floramarket/florabot/internal/session"
	"github.com/floramarket/florabot/internal/tenant"
	"github.com/floramarket/florabot/internal/update"
)

// Fleet controls the per-tenant bot runners. The transport manager satisfies
// it; commands guard against nil so handler tests need no fleet.
type Fleet interface {
	StartIdentity(identity tenant.BotIdentity) error
	StopTenant(tenantID tenant.ID)
}

// AttachFleet hands the handlers the running fleet. Called once during
// startup, after the transport manager exists.
func (h *Handlers) AttachFleet(fleet Fleet) {
	h.fleet = fleet
}

// ownedShop loads a shop by id and verifies it belongs to the florist bound
// to this session. A foreign or missing shop yields a nil shop so callers
// answer with the same not-found copy either way.
func (h *Handlers) ownedShop(ctx context.Context, sess *session.Session, shopID int64) (*domain.Shop, error) {
	ownerID, ok := floristID(sess)
	if !ok {
		return nil, nil
	}

	shop, err := h.shops.FindByID(ctx, shopID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find shop %d: %w", shopID, err)
	}
	if shop.OwnerID != ownerID {
		return nil, nil
	}
	return shop, nil
}

func identityOf(shop *domain.Shop) tenant.BotIdentity {
	return tenant.BotIdentity{
		TenantID: tenant.ID(shop.TenantID),
		Token:    shop.BotToken,
		Username: shop.BotUsername,
		Kind:     tenant.KindTenant,
		Active:   true,
	}
}

// setTokenCommand attaches a Telegram bot token to one of the florist's
// shops. An already-active shop gets its runner restarted on the new token.
type setTokenCommand struct{ *Handlers }

func (c *setTokenCommand) Command() string    { return "settoken" }
func (c *setTokenCommand) RequiresAuth() bool { return true }

func (c *setTokenCommand) Handle(ctx context.Context, msg *update.InboundMessage, sess *session.Session) (*response.Response, error) {
	t := c.translator(sess)

	args := msg.CommandArgs
	if len(args) < 2 {
		return response.Text(msg.ChatID, t.T("admin.token.usage")), nil
	}
	shopID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return response.Text(msg.ChatID, t.T("admin.token.usage")), nil
	}
	token := args[1]
	username := ""
	if len(args) > 2 {
		username = args[2]
	}

	shop, err := c.ownedShop(ctx, sess, shopID)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return response.Text(msg.ChatID, t.T("admin.shop.not_found")), nil
	}

	if err := c.shops.SetBotToken(ctx, shopID, token, username); err != nil {
		return nil, fmt.Errorf("set bot token: %w", err)
	}

	shop.BotToken = token
	shop.BotUsername = username
	if shop.Active && c.fleet != nil {
		if err := c.fleet.StartIdentity(identityOf(shop)); err != nil {
			return nil, fmt.Errorf("restart shop bot: %w", err)
		}
	}

	return response.Text(msg.ChatID, t.Tf("admin.token.set", shop.Name)), nil
}

// activateCommand switches a shop's bot on.
type activateCommand struct{ *Handlers }

func (c *activateCommand) Command() string    { return "activate" }
func (c *activateCommand) RequiresAuth() bool { return true }

func (c *activateCommand) Handle(ctx context.Context, msg *update.InboundMessage, sess *session.Session) (*response.Response, error) {
	t := c.translator(sess)

	shop, resp, err := c.shopFromArgs(ctx, t, msg, sess, "admin.activate.usage")
	if shop == nil {
		return resp, err
	}

	if shop.BotToken == "" {
		return response.Text(msg.ChatID, t.T("admin.activate.no_token")), nil
	}

	if err := c.shops.SetActive(ctx, shop.ID, true); err != nil {
		return nil, fmt.Errorf("activate shop: %w", err)
	}

	if c.fleet != nil {
		if err := c.fleet.StartIdentity(identityOf(shop)); err != nil {
			// Roll back so the directory never lists a shop whose bot
			// could not come up.
			if rbErr := c.shops.SetActive(ctx, shop.ID, false); rbErr != nil {
				c.log.Error("activation rollback failed", slog.Int64("shop_id", shop.ID), slog.Any("error", rbErr))
			}
			return nil, fmt.Errorf("start shop bot: %w", err)
		}
	}

	return response.Text(msg.ChatID, t.Tf("admin.activate.enabled", shop.Name)), nil
}

// deactivateCommand switches a shop's bot off and stops its runner.
type deactivateCommand struct{ *Handlers }

func (c *deactivateCommand) Command() string    { return "deactivate" }
func (c *deactivateCommand) RequiresAuth() bool { return true }

func (c *deactivateCommand) Handle(ctx context.Context, msg *update.InboundMessage, sess *session.Session) (*response.Response, error) {
	t := c.translator(sess)

	shop, resp, err := c.shopFromArgs(ctx, t, msg, sess, "admin.deactivate.usage")
	if shop == nil {
		return resp, err
	}

	if err := c.shops.SetActive(ctx, shop.ID, false); err != nil {
		return nil, fmt.Errorf("deactivate shop: %w", err)
	}

	if c.fleet != nil {
		c.fleet.StopTenant(tenant.ID(shop.TenantID))
	}

	return response.Text(msg.ChatID, t.Tf("admin.activate.disabled", shop.Name)), nil
}

// shopFromArgs parses the single <shop id> argument and resolves the owned
// shop, producing the usage or not-found reply when it cannot.
func (h *Handlers) shopFromArgs(ctx context.Context, t i18n.Translator, msg *update.InboundMessage, sess *session.Session, usageKey string) (*domain.Shop, *response.Response, error) {
	if len(msg.CommandArgs) != 1 {
		return nil, response.Text(msg.ChatID, t.T(usageKey)), nil
	}
	shopID, err := strconv.ParseInt(msg.CommandArgs[0], 10, 64)
	if err != nil {
		return nil, response.Text(msg.ChatID, t.T(usageKey)), nil
	}

	shop, err := h.ownedShop(ctx, sess, shopID)
	if err != nil {
		return nil, nil, err
	}
	if shop == nil {
		return nil, response.Text(msg.ChatID, t.T("admin.shop.not_found")), nil
	}
	return shop, nil, nil
}
