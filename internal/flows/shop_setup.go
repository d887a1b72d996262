package flows

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/floramarket/florabot/internal/domain"
	"github.com/floramarket/florabot/internal/i18n"
	"github.com/floramarket/florabot/internal/repository"
	"github.com/floramarket/florabot/internal/response"
	"github.com/floramarket/florabot/internal/session"
	"github.com/floramarket/florabot/internal/update"
)

// ShopSetupFlow collects a new shop's details and creates it. The shop
// starts inactive; its bot goes live once a token is attached.
type ShopSetupFlow struct {
	shops   repository.ShopRepository
	catalog *i18n.Catalog
	log     *slog.Logger
}

// NewShopSetupFlow creates the shop setup flow handler.
func NewShopSetupFlow(shops repository.ShopRepository, catalog *i18n.Catalog, log *slog.Logger) *ShopSetupFlow {
	if log == nil {
		log = slog.Default()
	}
	return &ShopSetupFlow{shops: shops, catalog: catalog, log: log}
}

// States lists the session states this flow owns.
func (f *ShopSetupFlow) States() []session.State {
	return []session.State{
		session.StateShopSetupName,
		session.StateShopSetupDescription,
		session.StateShopSetupCity,
		session.StateShopSetupAddress,
		session.StateShopSetupHours,
		session.StateShopSetupConfirm,
	}
}

// Handle advances the flow by one answer.
func (f *ShopSetupFlow) Handle(ctx context.Context, msg *update.InboundMessage, sess *session.Session) (*response.Response, error) {
	t := f.catalog.Translator(sess.Language)

	data := sess.FlowData.ShopSetup
	if data == nil {
		data = sess.FlowData.StartShopSetup()
		sess.State = session.StateShopSetupName
		return response.Text(msg.ChatID, t.T("admin.shop.ask_name")), nil
	}

	text := strings.TrimSpace(msg.RawText)
	if msg.Kind != update.KindText || text == "" {
		return response.Text(msg.ChatID, t.T("errors.unsupported_action")), nil
	}

	switch sess.State {
	case session.StateShopSetupName:
		data.Name = text
		sess.State = session.StateShopSetupDescription
		return response.Text(msg.ChatID, t.T("admin.shop.ask_description")), nil

	case session.StateShopSetupDescription:
		data.Description = text
		sess.State = session.StateShopSetupCity
		return response.Text(msg.ChatID, t.T("admin.shop.ask_city")), nil

	case session.StateShopSetupCity:
		data.City = text
		sess.State = session.StateShopSetupAddress
		return response.Text(msg.ChatID, t.T("admin.shop.ask_address")), nil

	case session.StateShopSetupAddress:
		data.Address = text
		sess.State = session.StateShopSetupHours
		return response.Text(msg.ChatID, t.T("admin.shop.ask_hours")), nil

	case session.StateShopSetupHours:
		data.Hours = text
		sess.State = session.StateShopSetupConfirm
		summary := t.Tf("admin.shop.confirm", data.Name, data.City, data.Address, data.Hours)
		return response.Text(msg.ChatID, summary+"\n\n"+t.T("common.yes")+" / "+t.T("common.no")), nil

	case session.StateShopSetupConfirm:
		yes, recognized := confirmed(text)
		if !recognized {
			summary := t.Tf("admin.shop.confirm", data.Name, data.City, data.Address, data.Hours)
			return response.Text(msg.ChatID, summary+"\n\n"+t.T("common.yes")+" / "+t.T("common.no")), nil
		}

		if !yes {
			sess.FlowData.Reset()
			sess.State = session.StateMainMenu
			return response.Text(msg.ChatID, t.T("common.cancel")), nil
		}

		ownerID, err := ownerFromSession(sess)
		if err != nil {
			return nil, err
		}

		shop := &domain.Shop{
			TenantID:    uuid.NewString(),
			OwnerID:     ownerID,
			Name:        data.Name,
			Description: data.Description,
			City:        data.City,
			Address:     data.Address,
			Hours:       data.Hours,
			CreatedAt:   time.Now().UTC(),
		}
		if err := f.shops.Create(ctx, shop); err != nil {
			return nil, fmt.Errorf("create shop: %w", err)
		}

		f.log.Info("shop created",
			slog.Int64("shop_id", shop.ID),
			slog.String("tenant_id", shop.TenantID),
			slog.Int64("owner_id", ownerID),
		)

		sess.FlowData.Reset()
		sess.State = session.StateMainMenu

		return response.Text(msg.ChatID, t.Tf("admin.shop.created", shop.Name)), nil
	}

	return nil, fmt.Errorf("shop setup flow got unexpected state %q", sess.State)
}

func ownerFromSession(sess *session.Session) (int64, error) {
	raw, ok := sess.Attribute("florist_id")
	if !ok {
		return 0, fmt.Errorf("shop setup without registered florist")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad florist id %q on session: %w", raw, err)
	}
	return id, nil
}
