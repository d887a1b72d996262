package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestOnceDropsDuplicates(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	key := UpdateKey("rose-corner", 9001)

	first, err := store.Once(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := store.Once(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, second)

	// Same update id on another tenant's bot is a different update.
	other, err := store.Once(ctx, UpdateKey("tulip-town", 9001), time.Minute)
	require.NoError(t, err)
	assert.True(t, other)
}

func TestExecuteRunsOnceAndCaches(t *testing.T) {
	store := setupStore(t)
	mgr := NewManager(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	key := OrderKey("rose-corner", 42, `{"items":[{"id":1,"qty":2}]}`)

	calls := 0
	op := func(ctx context.Context) (interface{}, error) {
		calls++
		return map[string]interface{}{"order_id": float64(7)}, nil
	}

	first, err := mgr.Execute(ctx, key, time.Hour, op)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := mgr.Execute(ctx, key, time.Hour, op)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, map[string]interface{}{"order_id": float64(7)}, second.Response)

	assert.Equal(t, 1, calls)
}

func TestExecuteFailureIsRetryable(t *testing.T) {
	store := setupStore(t)
	mgr := NewManager(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	key := OrderKey("rose-corner", 42, "payload")
	boom := errors.New("boom")

	_, err := mgr.Execute(ctx, key, time.Hour, func(ctx context.Context) (interface{}, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	result, err := mgr.Execute(ctx, key, time.Hour, func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, "ok", result.Response)
}

func TestGenerateKeyIsDeterministic(t *testing.T) {
	a := GenerateKey("rose-corner", int64(42), "payload")
	b := GenerateKey("rose-corner", int64(42), "payload")
	c := GenerateKey("rose-corner", int64(43), "payload")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
