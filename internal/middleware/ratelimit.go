// Package middleware provides the filters the dispatch engine runs before
// a session is loaded.
package middleware

import (
	"context"
	"errors"
	"log/slog"

	"github.com/floramarket/florabot/internal/dispatch"
	"github.com/floramarket/florabot/internal/ratelimit"
	"github.com/floramarket/florabot/internal/response"
	"github.com/floramarket/florabot/internal/update"
	"github.com/floramarket/florabot/pkg/metrics"
)

// RateLimitedText is sent to users that exceed their per-user allowance.
const RateLimitedText = "Too many requests. Please slow down and try again in a minute."

// RateLimit enforces the per-user limit before any session work happens.
// Limiter backend failures fail open.
func RateLimit(limiter ratelimit.Limiter, rules *ratelimit.Rules, log *slog.Logger) dispatch.Filter {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx context.Context, msg *update.InboundMessage) (*response.Response, error) {
		if limiter == nil || rules == nil || !rules.Enabled() {
			return nil, nil
		}
		if rules.IsWhitelisted(msg.UserID) {
			return nil, nil
		}

		limit, window := rules.PerUser()
		key := ratelimit.Key(string(msg.TenantID), msg.UserID)

		result, err := limiter.Check(ctx, key, limit, window)
		if err != nil && !errors.Is(err, ratelimit.ErrLimitExceeded) {
			log.Warn("rate limiter error", slog.Int64("user_id", msg.UserID), slog.Any("error", err))
			return nil, nil
		}

		if result != nil && result.Allowed {
			return nil, nil
		}

		metrics.RecordRateLimited()
		log.Warn("rate limit exceeded",
			slog.String("tenant_id", string(msg.TenantID)),
			slog.Int64("user_id", msg.UserID),
		)

		if !msg.CanRespond() {
			// Nothing sensible to reply to; swallow the turn.
			return &response.Response{}, nil
		}
		return response.Text(msg.ChatID, RateLimitedText), nil
	}
}
