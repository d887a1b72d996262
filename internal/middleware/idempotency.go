package middleware

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/floramarket/florabot/internal/dispatch"
	"github.com/floramarket/florabot/internal/idempotency"
	"github.com/floramarket/florabot/internal/response"
	"github.com/floramarket/florabot/internal/update"
)

// Dedupe drops updates that were already processed, which polling replays
// after restarts and webhooks re-deliver on timeouts. Store failures fail
// open so a Redis outage never blocks traffic.
func Dedupe(store idempotency.Store, ttl time.Duration, log *slog.Logger) dispatch.Filter {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return func(ctx context.Context, msg *update.InboundMessage) (*response.Response, error) {
		if store == nil {
			return nil, nil
		}

		raw, ok := msg.Metadata["update_id"]
		if !ok || raw == "" {
			return nil, nil
		}
		updateID, err := strconv.Atoi(raw)
		if err != nil {
			return nil, nil
		}

		first, err := store.Once(ctx, idempotency.UpdateKey(string(msg.TenantID), updateID), ttl)
		if err != nil {
			log.Warn("update dedupe failed", slog.Int("update_id", updateID), slog.Any("error", err))
			return nil, nil
		}

		if !first {
			log.Info("dropping duplicate update",
				slog.String("tenant_id", string(msg.TenantID)),
				slog.Int("update_id", updateID),
			)
			return &response.Response{}, nil
		}

		return nil, nil
	}
}
