package shop

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/floramarket/florabot/internal/domain"
	"github.com/floramarket/florabot/internal/i18n"
	"github.com/floramarket/florabot/internal/idempotency"
	"github.com/floramarket/florabot/internal/response"
	"github.com/floramarket/florabot/internal/session"
	"github.com/floramarket/florabot/internal/update"
)

const orderResultTTL = 24 * time.Hour

// orderPayload is the JSON an embedded storefront submits on checkout.
type orderPayload struct {
	Type    string            `json:"type" validate:"required,eq=order"`
	Items   []orderPayloadRow `json:"items" validate:"required,min=1,dive"`
	Comment string            `json:"comment" validate:"max=500"`
	Phone   string            `json:"phone" validate:"omitempty,e164"`
}

type orderPayloadRow struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0,lte=99"`
}

// OrderWebApp accepts order submissions from the shop's webapp storefront.
// Replays of the same payload return the original confirmation instead of a
// second order.
type OrderWebApp struct {
	handlers *Handlers
	idem     idempotency.Manager
	validate *validator.Validate
	log      *slog.Logger
}

// NewOrderWebApp creates the webapp order handler.
func NewOrderWebApp(handlers *Handlers, idem idempotency.Manager, log *slog.Logger) *OrderWebApp {
	if log == nil {
		log = slog.Default()
	}
	return &OrderWebApp{
		handlers: handlers,
		idem:     idem,
		validate: validator.New(),
		log:      log,
	}
}

// CanHandle claims payloads whose type discriminator is "order".
func (w *OrderWebApp) CanHandle(msg *update.InboundMessage) bool {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(msg.WebAppPayload), &probe); err != nil {
		return false
	}
	return probe.Type == "order"
}

func (w *OrderWebApp) Handle(ctx context.Context, msg *update.InboundMessage, sess *session.Session) (*response.Response, error) {
	t := w.handlers.translator(sess.Language)

	var payload orderPayload
	if err := json.Unmarshal([]byte(msg.WebAppPayload), &payload); err != nil {
		return response.Text(msg.ChatID, t.T("errors.unsupported_action")), nil
	}
	if err := w.validate.Struct(&payload); err != nil {
		w.log.Warn("rejecting invalid webapp order",
			slog.Int64("user_id", msg.UserID), slog.Any("error", err))
		return response.Text(msg.ChatID, t.T("errors.unsupported_action")), nil
	}

	key := idempotency.OrderKey(string(msg.TenantID), msg.UserID, msg.WebAppPayload)

	result, err := w.idem.Execute(ctx, key, orderResultTTL, func(ctx context.Context) (interface{}, error) {
		return w.placeOrder(ctx, t, msg, &payload)
	})
	if err != nil {
		return nil, err
	}

	text, ok := result.Response.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected cached order response %T", result.Response)
	}
	return response.Text(msg.ChatID, text), nil
}

// placeOrder creates the order row and returns the confirmation text that
// gets cached for replays.
func (w *OrderWebApp) placeOrder(ctx context.Context, t i18n.Translator, msg *update.InboundMessage, payload *orderPayload) (string, error) {
	h := w.handlers

	shop, err := h.shopFor(ctx)
	if err != nil {
		return "", err
	}

	customer, err := h.customers.GetOrCreate(ctx, shop.ID, msg.UserID, msg.Metadata["sender_name"])
	if err != nil {
		return "", err
	}

	order := &domain.Order{
		ShopID:     shop.ID,
		CustomerID: customer.ID,
		Status:     domain.OrderPending,
		Currency:   "USD",
		Comment:    payload.Comment,
	}
	for _, row := range payload.Items {
		product, err := h.products.FindByID(ctx, row.ProductID)
		if err != nil {
			return "", fmt.Errorf("resolve ordered product %d: %w", row.ProductID, err)
		}
		if !product.Available || product.ShopID != shop.ID {
			return "", fmt.Errorf("product %d is not orderable in shop %d", product.ID, shop.ID)
		}
		order.Currency = product.Currency
		order.TotalCents += product.PriceCents * int64(row.Quantity)
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:  product.ID,
			Name:       product.Name,
			PriceCents: product.PriceCents,
			Quantity:   row.Quantity,
		})
	}

	if err := h.orders.Create(ctx, order); err != nil {
		return "", err
	}

	w.log.Info("webapp order placed",
		slog.Int64("shop_id", shop.ID),
		slog.Int64("order_id", order.ID),
		slog.Int64("total_cents", order.TotalCents))

	return t.Tf("shop.order.received", formatPrice(order.TotalCents, order.Currency)), nil
}
