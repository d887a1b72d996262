package session

import (
	"context"
	"errors"
	"time"

	"github.com/floramarket/florabot/internal/tenant"
)

// ErrStoreUnavailable wraps backend failures so callers can distinguish an
// unreachable store from a missing session. A turn that hits it is abandoned
// without a reply.
var ErrStoreUnavailable = errors.New("session store unavailable")

// Store persists sessions keyed by (tenant, user).
//
// The store itself does not serialize concurrent access to a key; callers are
// expected to hold the per-key lock for the whole read-modify-write cycle.
type Store interface {
	// GetOrCreate returns the session for the pair, creating one in StateNew
	// with LastActivityAt set to now when none exists.
	GetOrCreate(ctx context.Context, tenantID tenant.ID, userID int64) (*Session, error)
	// Save upserts the session, refreshing LastActivityAt.
	Save(ctx context.Context, s *Session) error
	// Delete removes the session for the pair if present.
	Delete(ctx context.Context, tenantID tenant.ID, userID int64) error
	// FindStale returns up to limit sessions of the tenant whose last activity
	// is older than cutoff, starting at cursor. A zero returned cursor means
	// the scan is complete.
	FindStale(ctx context.Context, tenantID tenant.ID, cutoff time.Time, limit int, cursor uint64) ([]*Session, uint64, error)
	// DeleteStale removes every session of the tenant older than cutoff and
	// returns the number removed.
	DeleteStale(ctx context.Context, tenantID tenant.ID, cutoff time.Time) (int, error)
}
