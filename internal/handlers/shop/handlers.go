package shop

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/floramarket/florabot/internal/dispatch"
	"github.com/floramarket/florabot/internal/domain"
	"github.com/floramarket/florabot/internal/i18n"
	"github.com/floramarket/florabot/internal/keyboard"
	"github.com/floramarket/florabot/internal/repository"
	"github.com/floramarket/florabot/internal/response"
	"github.com/floramarket/florabot/internal/session"
	"github.com/floramarket/florabot/internal/tenant"
	"github.com/floramarket/florabot/internal/update"
)

const catalogPageSize = 5

// Handlers bundles the dependencies shared by the shop bot's handler set.
type Handlers struct {
	shops     repository.ShopRepository
	products  repository.ProductRepository
	orders    repository.OrderRepository
	customers repository.CustomerRepository
	carts     *CartStore
	catalog   *i18n.Catalog
	log       *slog.Logger
}

// New creates the shop handler bundle.
func New(
	shops repository.ShopRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	customers repository.CustomerRepository,
	carts *CartStore,
	catalog *i18n.Catalog,
	log *slog.Logger,
) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{
		shops:     shops,
		products:  products,
		orders:    orders,
		customers: customers,
		carts:     carts,
		catalog:   catalog,
		log:       log,
	}
}

// Registry assembles the shop bot's handler set.
func (h *Handlers) Registry(webapps ...dispatch.WebAppHandler) *dispatch.Registry {
	return dispatch.NewRegistry(dispatch.RegistryConfig{
		Commands: []dispatch.CommandHandler{
			&startCommand{h},
			&catalogCommand{h},
			&cartCommand{h},
			&ordersCommand{h},
		},
		Callbacks: []dispatch.CallbackHandler{
			&cartCallback{h},
			&orderCallback{h},
			&catalogCallback{h},
		},
		WebApps:  webapps,
		Fallback: &fallback{h},
	})
}

func (h *Handlers) translator(lang string) i18n.Translator {
	return h.catalog.Translator(lang)
}

// shopFor resolves the tenant on the context to its shop row.
func (h *Handlers) shopFor(ctx context.Context) (*domain.Shop, error) {
	tenantID, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("shop handler outside tenant context")
	}

	shop, err := h.shops.FindByTenantID(ctx, string(tenantID))
	if err != nil {
		return nil, fmt.Errorf("resolve shop for tenant %s: %w", tenantID, err)
	}
	return shop, nil
}

// formatPrice renders integer cents as a human price.
func formatPrice(cents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, currency)
}

// startCommand greets the customer and shows the persistent menu.
type startCommand struct{ *Handlers }

func (c *startCommand) Command() string    { return "start" }
func (c *startCommand) RequiresAuth() bool { return false }

func (c *startCommand) Handle(ctx context.Context, msg *update.InboundMessage, sess *session.Session) (*response.Response, error) {
	t := c.translator(sess.Language)

	shop, err := c.shopFor(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := c.customers.GetOrCreate(ctx, shop.ID, msg.UserID, msg.Metadata["sender_name"]); err != nil {
		return nil, err
	}

	sess.State = session.StateMainMenu

	return response.Text(msg.ChatID, t.Tf("shop.welcome", shop.Name)).
		WithMarkup(keyboard.ShopMainMenu(t)), nil
}

// catalogCommand shows the first catalog page.
type catalogCommand struct{ *Handlers }

func (c *catalogCommand) Command() string    { return "catalog" }
func (c *catalogCommand) RequiresAuth() bool { return false }

func (c *catalogCommand) Handle(ctx context.Context, msg *update.InboundMessage, sess *session.Session) (*response.Response, error) {
	t := c.translator(sess.Language)

	shop, err := c.shopFor(ctx)
	if err != nil {
		return nil, err
	}

	text, markup, err := c.catalogPage(ctx, t, shop, 1)
	if err != nil {
		return nil, err
	}

	resp := response.Text(msg.ChatID, text)
	if markup != nil {
		resp.WithMarkup(markup)
	}
	return resp, nil
}

// catalogPage renders one catalog page; shared by the command and the
// pagination callback.
func (h *Handlers) catalogPage(ctx context.Context, t i18n.Translator, shop *domain.Shop, page int) (string, *telebot.ReplyMarkup, error) {
	total, err := h.products.CountAvailable(ctx, shop.ID)
	if err != nil {
		return "", nil, err
	}
	if total == 0 {
		return t.T("shop.catalog_empty"), nil, nil
	}

	totalPages := (total + catalogPageSize - 1) / catalogPageSize
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	products, err := h.products.ListAvailable(ctx, shop.ID, catalogPageSize, (page-1)*catalogPageSize)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString(t.T("shop.catalog_header"))
	ids := make([]int64, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
		fmt.Fprintf(&b, "\n• %s — %s", p.Name, formatPrice(p.PriceCents, p.Currency))
		if p.Description != "" {
			fmt.Fprintf(&b, "\n  %s", p.Description)
		}
	}

	markup, err := keyboard.CatalogPage(t, ids, page, totalPages)
	if err != nil {
		return "", nil, err
	}

	return b.String(), markup, nil
}

// cartCommand shows the cart with checkout controls.
type cartCommand struct{ *Handlers }

func (c *cartCommand) Command() string    { return "cart" }
func (c *cartCommand) RequiresAuth() bool { return false }

func (c *cartCommand) Handle(ctx context.Context, msg *update.InboundMessage, sess *session.Session) (*response.Response, error) {
	t := c.translator(sess.Language)

	shop, err := c.shopFor(ctx)
	if err != nil {
		return nil, err
	}

	text, hasItems, err := c.cartSummary(ctx, t, shop, msg.UserID)
	if err != nil {
		return nil, err
	}

	resp := response.Text(msg.ChatID, text)
	if hasItems {
		markup, err := keyboard.CartActions(t)
		if err != nil {
			return nil, err
		}
		resp.WithMarkup(markup)
	}
	return resp, nil
}

// cartSummary renders the cart listing with a total line.
func (h *Handlers) cartSummary(ctx context.Context, t i18n.Translator, shop *domain.Shop, userID int64) (string, bool, error) {
	items, err := h.carts.Items(ctx, tenant.ID(shop.TenantID), userID)
	if err != nil {
		return "", false, err
	}
	if len(items) == 0 {
		return t.T("shop.cart_empty"), false, nil
	}

	var b strings.Builder
	b.WriteString(t.T("shop.cart_header"))

	var total int64
	currency := "USD"
	for productID, qty := range items {
		product, err := h.products.FindByID(ctx, productID)
		if err != nil {
			// Product removed from the catalog since it was added; skip it.
			h.log.Warn("cart references missing product",
				slog.Int64("product_id", productID), slog.Any("error", err))
			continue
		}
		currency = product.Currency
		line := product.PriceCents * int64(qty)
		total += line
		fmt.Fprintf(&b, "\n• %s ×%d — %s", product.Name, qty, formatPrice(line, product.Currency))
	}

	b.WriteString("\n")
	b.WriteString(t.Tf("shop.cart_total", formatPrice(total, currency)))

	return b.String(), true, nil
}

// ordersCommand lists the customer's recent orders.
type ordersCommand struct{ *Handlers }

func (c *ordersCommand) Command() string    { return "orders" }
func (c *ordersCommand) RequiresAuth() bool { return false }

func (c *ordersCommand) Handle(ctx context.Context, msg *update.InboundMessage, sess *session.Session) (*response.Response, error) {
	t := c.translator(sess.Language)

	shop, err := c.shopFor(ctx)
	if err != nil {
		return nil, err
	}

	customer, err := c.customers.GetOrCreate(ctx, shop.ID, msg.UserID, msg.Metadata["sender_name"])
	if err != nil {
		return nil, err
	}

	orders, err := c.orders.ListByCustomer(ctx, shop.ID, customer.ID, 10)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return response.Text(msg.ChatID, t.T("shop.orders_empty")), nil
	}

	var b strings.Builder
	b.WriteString(t.T("shop.orders_header"))
	for _, order := range orders {
		fmt.Fprintf(&b, "\n"+t.T("shop.order.line"),
			order.ID, order.Status, formatPrice(order.TotalCents, order.Currency))
	}

	return response.Text(msg.ChatID, b.String()), nil
}

// fallback maps the persistent menu buttons back onto their commands and
// reports unknown commands.
type fallback struct{ *Handlers }

func (f *fallback) Handle(ctx context.Context, msg *update.InboundMessage, sess *session.Session) (*response.Response, error) {
	t := f.translator(sess.Language)

	if msg.Kind == update.KindCommand {
		return response.Text(msg.ChatID, t.Tf("errors.unknown_command", msg.Command)), nil
	}

	// The reply keyboard sends button labels as plain text.
	switch strings.TrimSpace(msg.RawText) {
	case t.T("menu.catalog"):
		return (&catalogCommand{f.Handlers}).Handle(ctx, msg, sess)
	case t.T("menu.cart"):
		return (&cartCommand{f.Handlers}).Handle(ctx, msg, sess)
	case t.T("menu.orders"):
		return (&ordersCommand{f.Handlers}).Handle(ctx, msg, sess)
	}

	shop, err := f.shopFor(ctx)
	if err != nil {
		return nil, err
	}
	return response.Text(msg.ChatID, t.Tf("shop.welcome", shop.Name)).
		WithMarkup(keyboard.ShopMainMenu(t)), nil
}
