package middleware

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

	"github.com/floramarket/florabot/internal/idempotency"
	"github.com/floramarket/florabot/internal/ratelimit"
	"github.com/floramarket/florabot/internal/tenant"
	"github.com/floramarket/florabot/internal/update"
	"github.com/floramarket/florabot/pkg/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func textMessage(tenantID string, userID, chatID int64) *update.InboundMessage {
	return &update.InboundMessage{
		TenantID: tenant.ID(tenantID),
		ChatID:   chatID,
		UserID:   userID,
		Kind:     update.KindText,
		RawText:  "hello",
		Metadata: map[string]string{"update_id": "1234"},
	}
}

func TestRateLimitFilter(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(testLogger())
	rules := ratelimit.NewRules(config.LimitsConfig{
		Enabled:   true,
		PerUser:   2,
		Window:    time.Minute,
		Whitelist: []int64{999},
	})

	filter := RateLimit(limiter, rules, testLogger())
	ctx := context.Background()

	msg := textMessage("rose-corner", 10, 100)
	for i := 0; i < 2; i++ {
		resp, err := filter(ctx, msg)
		require.NoError(t, err)
		assert.Nil(t, resp)
	}

	resp, err := filter(ctx, msg)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, RateLimitedText, resp.Primary.Text)

	// Whitelisted users are never limited.
	vip := textMessage("rose-corner", 999, 100)
	for i := 0; i < 5; i++ {
		resp, err := filter(ctx, vip)
		require.NoError(t, err)
		assert.Nil(t, resp)
	}
}

func TestRateLimitFilterDisabled(t *testing.T) {
	filter := RateLimit(nil, ratelimit.NewRules(config.LimitsConfig{}), testLogger())

	resp, err := filter(context.Background(), textMessage("rose-corner", 10, 100))
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestDedupeFilter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := idempotency.NewRedisStore(client, testLogger())
	filter := Dedupe(store, time.Hour, testLogger())
	ctx := context.Background()

	msg := textMessage("rose-corner", 10, 100)

	resp, err := filter(ctx, msg)
	require.NoError(t, err)
	assert.Nil(t, resp, "first delivery proceeds")

	resp, err = filter(ctx, msg)
	require.NoError(t, err)
	require.NotNil(t, resp, "replay is swallowed")
	assert.Zero(t, resp.Primary, "nothing is delivered for a replay")

	// The same update id from another tenant's bot is a distinct update.
	other := textMessage("tulip-town", 10, 100)
	resp, err = filter(ctx, other)
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestDedupeFilterFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	store := idempotency.NewRedisStore(client, testLogger())
	filter := Dedupe(store, time.Hour, testLogger())

	mr.Close()

	resp, err := filter(context.Background(), textMessage("rose-corner", 10, 100))
	require.NoError(t, err)
	assert.Nil(t, resp, "redis outage lets the turn proceed")
}
