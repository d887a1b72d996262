package middleware

import (
	"context"
	"log/slog"

	"github.com/floramarket/florabot/internal/dispatch"
	"github.com/floramarket/florabot/internal/response"
	"github.com/floramarket/florabot/internal/update"
	"github.com/floramarket/florabot/pkg/logger"
)

// TurnLogging records every inbound turn with its routing identity. It
// never short-circuits.
func TurnLogging(log *slog.Logger) dispatch.Filter {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx context.Context, msg *update.InboundMessage) (*response.Response, error) {
		attrs := []any{
			slog.String("kind", string(msg.Kind)),
			slog.String("tenant_id", string(msg.TenantID)),
			slog.Int64("user_id", msg.UserID),
			slog.String("correlation_id", logger.CorrelationIDFromContext(ctx)),
		}
		if msg.Command != "" {
			attrs = append(attrs, slog.String("command", msg.Command))
		}

		log.Info("inbound update", attrs...)
		return nil, nil
	}
}
