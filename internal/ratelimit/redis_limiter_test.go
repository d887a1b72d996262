package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floramarket/florabot/pkg/config"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRedisLimiter_AllowsWithinLimit(t *testing.T) {
	limiter := NewRedisLimiter(setupTestRedis(t), testLogger())
	ctx := context.Background()

	key := Key("rose-corner", 100)
	for i := 0; i < 3; i++ {
		result, err := limiter.Check(ctx, key, 5, time.Minute)
		assert.NoError(t, err)
		assert.True(t, result.Allowed)
	}
}

func TestRedisLimiter_BlocksWhenExceeded(t *testing.T) {
	limiter := NewRedisLimiter(setupTestRedis(t), testLogger())
	ctx := context.Background()

	key := Key("rose-corner", 101)
	for i := 0; i < 2; i++ {
		result, err := limiter.Check(ctx, key, 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := limiter.Check(ctx, key, 2, time.Minute)
	assert.ErrorIs(t, err, ErrLimitExceeded)
	assert.False(t, result.Allowed)
}

func TestRedisLimiter_TenantsCountSeparately(t *testing.T) {
	limiter := NewRedisLimiter(setupTestRedis(t), testLogger())
	ctx := context.Background()

	_, err := limiter.Check(ctx, Key("rose-corner", 7), 1, time.Minute)
	require.NoError(t, err)

	// Same user on another shop's bot starts fresh.
	result, err := limiter.Check(ctx, Key("tulip-town", 7), 1, time.Minute)
	assert.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestRedisLimiter_SlidingWindow(t *testing.T) {
	limiter := NewRedisLimiter(setupTestRedis(t), testLogger())
	ctx := context.Background()

	key := Key("rose-corner", 102)
	for i := 0; i < 2; i++ {
		result, err := limiter.Check(ctx, key, 2, time.Second)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	time.Sleep(1100 * time.Millisecond)

	result, err := limiter.Check(ctx, key, 2, time.Second)
	assert.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestMemoryLimiter_BlocksAndRecovers(t *testing.T) {
	limiter := NewMemoryLimiter(testLogger())
	ctx := context.Background()

	key := Key("", 55)
	for i := 0; i < 3; i++ {
		_, err := limiter.Check(ctx, key, 3, 50*time.Millisecond)
		require.NoError(t, err)
	}

	_, err := limiter.Check(ctx, key, 3, 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrLimitExceeded)

	time.Sleep(60 * time.Millisecond)

	result, err := limiter.Check(ctx, key, 3, 50*time.Millisecond)
	assert.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestMemoryLimiter_Cleanup(t *testing.T) {
	limiter := NewMemoryLimiter(testLogger())
	ctx := context.Background()

	_, err := limiter.Check(ctx, Key("", 56), 3, time.Millisecond)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	limiter.Cleanup(time.Millisecond)

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Empty(t, limiter.buckets)
}

func TestAdaptiveLimiter_FallsBackOnRedisFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewAdaptiveLimiter(
		NewRedisLimiter(client, testLogger()),
		NewMemoryLimiter(testLogger()),
		testLogger(),
	)

	mr.Close()

	result, err := limiter.Check(context.Background(), Key("rose-corner", 9), 10, time.Minute)
	assert.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestRules(t *testing.T) {
	rules := NewRules(config.LimitsConfig{
		Enabled:   true,
		PerUser:   20,
		Window:    time.Minute,
		Whitelist: []int64{42},
	})

	assert.True(t, rules.Enabled())
	assert.True(t, rules.IsWhitelisted(42))
	assert.False(t, rules.IsWhitelisted(43))

	limit, window := rules.PerUser()
	assert.Equal(t, 20, limit)
	assert.Equal(t, time.Minute, window)

	disabled := NewRules(config.LimitsConfig{Enabled: true})
	assert.False(t, disabled.Enabled(), "zero limit disables the rules")
}
