package shop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/floramarket/florabot/internal/domain"
	"github.com/floramarket/florabot/internal/i18n"
	"github.com/floramarket/florabot/internal/keyboard"
	"github.com/floramarket/florabot/internal/repository"
	"github.com/floramarket/florabot/internal/response"
	"github.com/floramarket/florabot/internal/update"
)

// callbackTranslator picks a language for a session-less callback turn from
// the provider metadata.
func (h *Handlers) callbackTranslator(msg *update.InboundMessage) i18n.Translator {
	return h.translator(msg.Metadata["language_code"])
}

func messageIDOf(msg *update.InboundMessage) (int, bool) {
	id, err := strconv.Atoi(msg.Metadata["message_id"])
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// cartCallback serves "cart:add:<productID>", "cart:checkout" and
// "cart:clear" buttons.
type cartCallback struct{ *Handlers }

func (c *cartCallback) Prefix() string { return keyboard.ActionCart + keyboard.CallbackSeparator }

func (c *cartCallback) Handle(ctx context.Context, msg *update.InboundMessage) (*response.Response, error) {
	t := c.callbackTranslator(msg)

	_, args, err := keyboard.Decode(msg.CallbackData)
	if err != nil || len(args) == 0 {
		return nil, fmt.Errorf("malformed cart callback %q", msg.CallbackData)
	}

	switch args[0] {
	case "add":
		if len(args) < 2 {
			return nil, fmt.Errorf("cart add without product id")
		}
		return c.addToCart(ctx, t, msg, args[1])
	case "checkout":
		return c.checkout(ctx, t, msg)
	case "clear":
		if err := c.carts.Clear(ctx, msg.TenantID, msg.UserID); err != nil {
			return nil, err
		}
		return response.Text(msg.ChatID, t.T("shop.cart_cleared")).
			AddAction(response.AnswerCallback(msg.CallbackID, "")), nil
	default:
		return nil, fmt.Errorf("unknown cart action %q", args[0])
	}
}

func (c *cartCallback) addToCart(ctx context.Context, t i18n.Translator, msg *update.InboundMessage, rawID string) (*response.Response, error) {
	productID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse product id %q: %w", rawID, err)
	}

	product, err := c.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &response.Response{
				Primary: response.AnswerCallback(msg.CallbackID, t.T("shop.catalog_empty")),
			}, nil
		}
		return nil, err
	}

	if err := c.carts.Add(ctx, msg.TenantID, msg.UserID, product.ID); err != nil {
		return nil, err
	}

	// A toast is enough; the catalog message stays in place.
	return &response.Response{
		Primary: response.AnswerCallback(msg.CallbackID, t.Tf("shop.cart_added", product.Name)),
	}, nil
}

// checkout turns the cart into a pending order and clears the cart.
func (c *cartCallback) checkout(ctx context.Context, t i18n.Translator, msg *update.InboundMessage) (*response.Response, error) {
	shop, err := c.shopFor(ctx)
	if err != nil {
		return nil, err
	}

	items, err := c.carts.Items(ctx, msg.TenantID, msg.UserID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return response.Text(msg.ChatID, t.T("shop.cart_empty")).
			AddAction(response.AnswerCallback(msg.CallbackID, "")), nil
	}

	customer, err := c.customers.GetOrCreate(ctx, shop.ID, msg.UserID, msg.Metadata["sender_name"])
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		ShopID:     shop.ID,
		CustomerID: customer.ID,
		Status:     domain.OrderPending,
		Currency:   "USD",
	}
	for productID, qty := range items {
		product, err := c.products.FindByID(ctx, productID)
		if err != nil {
			c.log.Warn("checkout skips missing product",
				slog.Int64("product_id", productID), slog.Any("error", err))
			continue
		}
		order.Currency = product.Currency
		order.TotalCents += product.PriceCents * int64(qty)
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:  product.ID,
			Name:       product.Name,
			PriceCents: product.PriceCents,
			Quantity:   qty,
		})
	}
	if len(order.Items) == 0 {
		return response.Text(msg.ChatID, t.T("shop.cart_empty")).
			AddAction(response.AnswerCallback(msg.CallbackID, "")), nil
	}

	if err := c.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	if err := c.carts.Clear(ctx, msg.TenantID, msg.UserID); err != nil {
		// The order is already placed; a stale cart is an annoyance, not
		// a failure.
		c.log.Warn("clearing cart after checkout failed", slog.Any("error", err))
	}

	return response.Text(msg.ChatID, t.Tf("shop.order.placed", order.ID, formatPrice(order.TotalCents, order.Currency))).
		AddAction(response.AnswerCallback(msg.CallbackID, "")), nil
}

// orderCallback serves "order:accept:<id>" and "order:cancel:<id>" buttons.
type orderCallback struct{ *Handlers }

func (c *orderCallback) Prefix() string { return keyboard.ActionOrder + keyboard.CallbackSeparator }

func (c *orderCallback) Handle(ctx context.Context, msg *update.InboundMessage) (*response.Response, error) {
	t := c.callbackTranslator(msg)

	_, args, err := keyboard.Decode(msg.CallbackData)
	if err != nil || len(args) < 2 {
		return nil, fmt.Errorf("malformed order callback %q", msg.CallbackData)
	}

	orderID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse order id %q: %w", args[1], err)
	}

	var status domain.OrderStatus
	var textKey string
	switch args[0] {
	case "accept":
		status, textKey = domain.OrderAccepted, "shop.order.accepted"
	case "cancel":
		status, textKey = domain.OrderCancelled, "shop.order.cancelled"
	default:
		return nil, fmt.Errorf("unknown order action %q", args[0])
	}

	if err := c.orders.UpdateStatus(ctx, orderID, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &response.Response{
				Primary: response.AnswerCallback(msg.CallbackID, t.T("shop.order.not_found")),
			}, nil
		}
		return nil, err
	}

	text := t.Tf(textKey, orderID)
	if messageID, ok := messageIDOf(msg); ok {
		// Replace the order card so the buttons disappear with it.
		return response.EditText(msg.ChatID, messageID, text).
			AddAction(response.AnswerCallback(msg.CallbackID, "")), nil
	}
	return response.Text(msg.ChatID, text).
		AddAction(response.AnswerCallback(msg.CallbackID, "")), nil
}

// catalogCallback serves the "catalog:<page>" pagination buttons by editing
// the catalog message in place.
type catalogCallback struct{ *Handlers }

func (c *catalogCallback) Prefix() string { return keyboard.ActionCatalog + keyboard.CallbackSeparator }

func (c *catalogCallback) Handle(ctx context.Context, msg *update.InboundMessage) (*response.Response, error) {
	t := c.callbackTranslator(msg)

	_, args, err := keyboard.Decode(msg.CallbackData)
	if err != nil || len(args) == 0 {
		return nil, fmt.Errorf("malformed catalog callback %q", msg.CallbackData)
	}
	page, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, fmt.Errorf("parse catalog page %q: %w", args[0], err)
	}

	shop, err := c.shopFor(ctx)
	if err != nil {
		return nil, err
	}

	text, markup, err := c.catalogPage(ctx, t, shop, page)
	if err != nil {
		return nil, err
	}

	messageID, ok := messageIDOf(msg)
	if !ok {
		resp := response.Text(msg.ChatID, text)
		if markup != nil {
			resp.WithMarkup(markup)
		}
		return resp.AddAction(response.AnswerCallback(msg.CallbackID, "")), nil
	}

	resp := response.EditText(msg.ChatID, messageID, text)
	if markup != nil {
		resp.WithMarkup(markup)
	}
	return resp.AddAction(response.AnswerCallback(msg.CallbackID, "")), nil
}
