// Package resilience provides retry and circuit-breaking primitives for
// calls to external systems, primarily the Telegram API.
package resilience

import (
	"context"
	"math"
	"time"
)

const (
	maxRetries        = 3
	initialBackoff    = 100 * time.Millisecond
	maxBackoff        = 5 * time.Second
	backoffMultiplier = 2.0
)

// WithRetry runs fn, retrying with exponential backoff while retryable
// reports the failure as transient. The last error is returned once the
// attempts are exhausted or the context is cancelled.
func WithRetry(ctx context.Context, retryable func(error) bool, fn func() error) error {
	if fn == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err = fn()
		if err == nil {
			return nil
		}

		if retryable == nil || !retryable(err) {
			return err
		}
		if attempt == maxRetries {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(attempt + 1)):
		}
	}

	return err
}

func backoff(attempt int) time.Duration {
	delay := time.Duration(float64(initialBackoff) * math.Pow(backoffMultiplier, float64(attempt)))
	if delay > maxBackoff {
		return maxBackoff
	}
	return delay
}
