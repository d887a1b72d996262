package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	limiterChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "florabot_ratelimit_checks_total",
		Help: "Rate limit checks by backend and result.",
	}, []string{"backend", "result"})

	limiterRedisErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "florabot_ratelimit_redis_errors_total",
		Help: "Redis errors encountered by the limiter.",
	})
)

func init() {
	prometheus.MustRegister(limiterChecksTotal, limiterRedisErrorsTotal)
}

// AdaptiveLimiter delegates to the Redis limiter and falls back to a
// stricter in-memory limiter when Redis fails. Halving the limit on
// fallback compensates for each instance counting alone.
type AdaptiveLimiter struct {
	primary  Limiter
	fallback Limiter
	log      *slog.Logger
}

var _ Limiter = (*AdaptiveLimiter)(nil)

// NewAdaptiveLimiter creates a limiter that adapts between backends.
func NewAdaptiveLimiter(primary, fallback Limiter, log *slog.Logger) Limiter {
	if log == nil {
		log = slog.Default()
	}
	return &AdaptiveLimiter{primary: primary, fallback: fallback, log: log}
}

// Check evaluates the limit on the primary backend first.
func (a *AdaptiveLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	result, err := a.primary.Check(ctx, key, limit, window)
	if err == nil || errors.Is(err, ErrLimitExceeded) {
		limiterChecksTotal.WithLabelValues("redis", resultLabel(result)).Inc()
		return result, err
	}

	limiterRedisErrorsTotal.Inc()
	a.log.Warn("redis limiter failed, falling back to in-memory", "key", key, "error", err)

	fallbackLimit := limit / 2
	if fallbackLimit <= 0 {
		fallbackLimit = 1
	}

	result, err = a.fallback.Check(ctx, key, fallbackLimit, window)
	limiterChecksTotal.WithLabelValues("memory", resultLabel(result)).Inc()
	return result, err
}

func resultLabel(r *Result) string {
	if r != nil && r.Allowed {
		return "allowed"
	}
	return "rejected"
}
