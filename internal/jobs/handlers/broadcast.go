package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/floramarket/florabot/internal/jobs"
	"github.com/floramarket/florabot/internal/repository"
	"github.com/floramarket/florabot/internal/tenant"
)

// Sender delivers broadcast messages through a tenant's running bot.
type Sender interface {
	Send(tenantID tenant.ID, chatID int64, text string) error
}

// BroadcastHandler messages every customer of one shop. Individual delivery
// failures (blocked bots, deleted accounts) are logged and skipped so one bad
// recipient never fails the whole broadcast.
type BroadcastHandler struct {
	shops     repository.ShopRepository
	customers repository.CustomerRepository
	sender    Sender
	log       *slog.Logger
}

func NewBroadcastHandler(shops repository.ShopRepository, customers repository.CustomerRepository, sender Sender, log *slog.Logger) *BroadcastHandler {
	if log == nil {
		log = slog.Default()
	}
	return &BroadcastHandler{shops: shops, customers: customers, sender: sender, log: log}
}

func (h *BroadcastHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.BroadcastPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.log.ErrorContext(ctx, "broadcast: failed to decode payload",
			slog.String("task_type", t.Type()), slog.Any("error", err))
		return err
	}
	if payload.Text == "" {
		return fmt.Errorf("broadcast for tenant %q has no text", payload.TenantID)
	}

	shop, err := h.shops.FindByTenantID(ctx, payload.TenantID)
	if err != nil {
		return fmt.Errorf("broadcast: resolve tenant %q: %w", payload.TenantID, err)
	}

	customers, err := h.customers.ListByShop(ctx, shop.ID)
	if err != nil {
		return fmt.Errorf("broadcast: list customers of shop %d: %w", shop.ID, err)
	}

	sent := 0
	for _, customer := range customers {
		if err := h.sender.Send(tenant.ID(payload.TenantID), customer.TelegramID, payload.Text); err != nil {
			h.log.WarnContext(ctx, "broadcast delivery failed",
				slog.Int64("customer_id", customer.ID), slog.Any("error", err))
			continue
		}
		sent++
	}

	h.log.InfoContext(ctx, "broadcast finished",
		slog.String("tenant_id", payload.TenantID),
		slog.Int("recipients", len(customers)),
		slog.Int("sent", sent),
	)

	return nil
}
