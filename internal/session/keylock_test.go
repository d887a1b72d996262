package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLock_SerializesSameKey(t *testing.T) {
	lock := NewKeyedLock()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		running int
		maxSeen int
		wg      sync.WaitGroup
	)

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			require.NoError(t, lock.Acquire(ctx, "rose-corner", 42))
			defer lock.Release("rose-corner", 42)

			mu.Lock()
			running++
			if running > maxSeen {
				maxSeen = running
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
		}()
	}

	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestKeyedLock_DifferentKeysRunConcurrently(t *testing.T) {
	lock := NewKeyedLock()
	ctx := context.Background()

	require.NoError(t, lock.Acquire(ctx, "rose-corner", 1))
	defer lock.Release("rose-corner", 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		require.NoError(t, lock.Acquire(ctx, "lily-house", 1))
		lock.Release("lily-house", 1)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("different key blocked behind unrelated holder")
	}
}

func TestKeyedLock_AcquireHonorsCancellation(t *testing.T) {
	lock := NewKeyedLock()

	require.NoError(t, lock.Acquire(context.Background(), "rose-corner", 42))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := lock.Acquire(ctx, "rose-corner", 42)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Holder releases; the key must be acquirable again (no leaked slot).
	lock.Release("rose-corner", 42)
	require.NoError(t, lock.Acquire(context.Background(), "rose-corner", 42))
	lock.Release("rose-corner", 42)
}
