package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/floramarket/florabot/internal/dispatch"
	"github.com/floramarket/florabot/internal/i18n"
	"github.com/floramarket/florabot/internal/jobs"
	"github.com/floramarket/florabot/internal/repository"
	"github.com/floramarket/florabot/internal/response"
	"github.com/floramarket/florabot/internal/session"
	"github.com/floramarket/florabot/internal/update"
)

// Handlers bundles the dependencies shared by the admin command set.
type Handlers struct {
	florists repository.FloristRepository
	shops    repository.ShopRepository
	catalog  *i18n.Catalog
	queue    jobs.Manager
	fleet    Fleet
	log      *slog.Logger
}

// New creates the admin handler bundle.
func New(florists repository.FloristRepository, shops repository.ShopRepository, catalog *i18n.Catalog, queue jobs.Manager, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{florists: florists, shops: shops, catalog: catalog, queue: queue, log: log}
}

// Registry assembles the admin bot's handler set.
func (h *Handlers) Registry(flows ...dispatch.FlowHandler) *dispatch.Registry {
	return dispatch.NewRegistry(dispatch.RegistryConfig{
		Commands: []dispatch.CommandHandler{
			&startCommand{h},
			&registerCommand{h},
			&myShopsCommand{h},
			&newShopCommand{h},
			&setTokenCommand{h},
			&activateCommand{h},
			&deactivateCommand{h},
			&broadcastCommand{h},
			&cancelCommand{h},
		},
		Flows:    flows,
		Fallback: &fallback{h},
	})
}

func (h *Handlers) translator(sess *session.Session) i18n.Translator {
	return h.catalog.Translator(sess.Language)
}

// startCommand greets the user and lists what the admin bot can do. The
// session state is left untouched so /start never interrupts a flow the
// user deliberately re-enters.
type startCommand struct{ *Handlers }

func (c *startCommand) Command() string    { return "start" }
func (c *startCommand) RequiresAuth() bool { return false }

func (c *startCommand) Handle(ctx context.Context, msg *update.InboundMessage, sess *session.Session) (*response.Response, error) {
	t := c.translator(sess)

	florist, err := c.florists.FindByTelegramID(ctx, msg.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("start lookup: %w", err)
		}
		return response.Text(msg.ChatID, t.T("admin.welcome")), nil
	}

	return response.Text(msg.ChatID, t.Tf("admin.registered_welcome", florist.Name)), nil
}

// registerCommand starts the registration flow.
type registerCommand struct{ *Handlers }

func (c *registerCommand) Command() string    { return "register" }
func (c *registerCommand) RequiresAuth() bool { return false }

func (c *registerCommand) Handle(ctx context.Context, msg *update.InboundMessage, sess *session.Session) (*response.Response, error) {
	t := c.translator(sess)

	if _, err := c.florists.FindByTelegramID(ctx, msg.UserID); err == nil {
		return response.Text(msg.ChatID, t.T("admin.register.already")), nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("register lookup: %w", err)
	}

	sess.FlowData.StartRegistration()
	sess.State = session.StateRegistrationName

	return response.Text(msg.ChatID, t.T("admin.register.ask_name")), nil
}

// myShopsCommand lists the florist's shops.
type myShopsCommand struct{ *Handlers }

func (c *myShopsCommand) Command() string    { return "myshops" }
func (c *myShopsCommand) RequiresAuth() bool { return true }

func (c *myShopsCommand) Handle(ctx context.Context, msg *update.InboundMessage, sess *session.Session) (*response.Response, error) {
	t := c.translator(sess)

	ownerID, ok := floristID(sess)
	if !ok {
		return response.Text(msg.ChatID, t.T("admin.shop.not_registered")), nil
	}

	shops, err := c.shops.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}

	if len(shops) == 0 {
		return response.Text(msg.ChatID, t.T("admin.shop.none")), nil
	}

	var b strings.Builder
	b.WriteString(t.T("admin.shop.list_header"))
	for _, shop := range shops {
		status := "off"
		if shop.Active {
			status = "on"
		}
		fmt.Fprintf(&b, "\n• #%d %s (%s), bot %s", shop.ID, shop.Name, shop.City, status)
	}

	return response.Text(msg.ChatID, b.String()), nil
}

// newShopCommand starts the shop setup flow.
type newShopCommand struct{ *Handlers }

func (c *newShopCommand) Command() string    { return "newshop" }
func (c *newShopCommand) RequiresAuth() bool { return true }

func (c *newShopCommand) Handle(ctx context.Context, msg *update.InboundMessage, sess *session.Session) (*response.Response, error) {
	t := c.translator(sess)

	sess.FlowData.StartShopSetup()
	sess.State = session.StateShopSetupName

	return response.Text(msg.ChatID, t.T("admin.shop.ask_name")), nil
}

// cancelCommand abandons whatever flow the session is in.
type cancelCommand struct{ *Handlers }

func (c *cancelCommand) Command() string    { return "cancel" }
func (c *cancelCommand) RequiresAuth() bool { return false }

func (c *cancelCommand) Handle(ctx context.Context, msg *update.InboundMessage, sess *session.Session) (*response.Response, error) {
	t := c.translator(sess)

	if sess.State == session.StateNew || sess.State == session.StateMainMenu {
		return response.Text(msg.ChatID, t.T("common.nothing_to_cancel")), nil
	}

	sess.FlowData.Reset()
	if _, registered := sess.Attribute(floristIDAttr); registered {
		sess.State = session.StateMainMenu
	} else {
		sess.State = session.StateNew
	}

	return response.Text(msg.ChatID, t.T("common.cancel")), nil
}

// fallback serves text outside any flow and commands nobody registered.
type fallback struct{ *Handlers }

func (f *fallback) Handle(ctx context.Context, msg *update.InboundMessage, sess *session.Session) (*response.Response, error) {
	t := f.translator(sess)

	if msg.Kind == update.KindCommand {
		return response.Text(msg.ChatID, t.Tf("errors.unknown_command", msg.Command)), nil
	}

	return response.Text(msg.ChatID, t.T("admin.welcome")), nil
}
