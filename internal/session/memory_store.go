package session

import (
	"context"
	"sync"
	"time"

	"github.com/floramarket/florabot/internal/tenant"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store for tests and single-node development.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

// GetOrCreate returns a copy of the stored session or a fresh one in StateNew.
func (m *MemoryStore) GetOrCreate(_ context.Context, tenantID tenant.ID, userID int64) (*Session, error) {
	m.mu.RLock()
	sess := m.sessions[lockKey(tenantID, userID)]
	m.mu.RUnlock()

	if sess != nil {
		return sess.Clone(), nil
	}

	return &Session{
		TenantID:       tenantID,
		UserID:         userID,
		State:          StateNew,
		LastActivityAt: time.Now().UTC(),
	}, nil
}

// Save stores a copy of the session and refreshes its activity timestamp.
func (m *MemoryStore) Save(_ context.Context, sess *Session) error {
	sess.LastActivityAt = time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[lockKey(sess.TenantID, sess.UserID)] = sess.Clone()

	return nil
}

// Delete removes the stored session for the pair if present.
func (m *MemoryStore) Delete(_ context.Context, tenantID tenant.ID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, lockKey(tenantID, userID))

	return nil
}

// FindStale returns the tenant's sessions untouched since cutoff. The memory
// store holds everything, so pagination completes in one pass.
func (m *MemoryStore) FindStale(_ context.Context, tenantID tenant.ID, cutoff time.Time, limit int, _ uint64) ([]*Session, uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stale []*Session
	for _, sess := range m.sessions {
		if sess.TenantID != tenantID || !sess.LastActivityAt.Before(cutoff) {
			continue
		}
		stale = append(stale, sess.Clone())
		if limit > 0 && len(stale) >= limit {
			break
		}
	}

	return stale, 0, nil
}

// DeleteStale removes the tenant's sessions older than cutoff.
func (m *MemoryStore) DeleteStale(_ context.Context, tenantID tenant.ID, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for key, sess := range m.sessions {
		if sess.TenantID == tenantID && sess.LastActivityAt.Before(cutoff) {
			delete(m.sessions, key)
			deleted++
		}
	}

	return deleted, nil
}
