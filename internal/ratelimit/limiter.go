package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Result captures the outcome of a rate-limit evaluation.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter describes a rate-limiting strategy. A denied check returns a
// Result with Allowed=false and ErrLimitExceeded.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// ErrLimitExceeded indicates the rate limit has been reached for the key.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// Key builds the limiter key for one user on one bot. Limits are scoped
// per tenant, so the same person talking to two shops counts separately.
func Key(tenantID string, userID int64) string {
	if tenantID == "" {
		tenantID = "admin"
	}
	return fmt.Sprintf("%s:%d", tenantID, userID)
}
