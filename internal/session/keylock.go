package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/floramarket/florabot/internal/tenant"
)

// KeyedLock serializes session read-modify-write cycles per (tenant, user)
// pair. Different keys proceed in parallel; two turns for the same key run
// strictly one after the other.
type KeyedLock struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

// NewKeyedLock constructs an empty lock table.
func NewKeyedLock() *KeyedLock {
	return &KeyedLock{slots: make(map[string]*lockSlot)}
}

// Acquire blocks until the key's slot is free or ctx is done. On a ctx error
// the slot is not held and no Release call is owed.
func (l *KeyedLock) Acquire(ctx context.Context, tenantID tenant.ID, userID int64) error {
	key := lockKey(tenantID, userID)

	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.unref(key)
		return ctx.Err()
	}
}

// Release frees the key's slot. It must be called exactly once per successful
// Acquire, typically via defer so cancellation paths cannot leak the lock.
func (l *KeyedLock) Release(tenantID tenant.ID, userID int64) {
	key := lockKey(tenantID, userID)

	l.mu.Lock()
	slot := l.slots[key]
	l.mu.Unlock()

	if slot == nil {
		return
	}

	<-slot.ch
	l.unref(key)
}

func (l *KeyedLock) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot := l.slots[key]
	if slot == nil {
		return
	}

	slot.refs--
	if slot.refs <= 0 {
		delete(l.slots, key)
	}
}

func lockKey(tenantID tenant.ID, userID int64) string {
	return fmt.Sprintf("%s:%d", tenantID, userID)
}
