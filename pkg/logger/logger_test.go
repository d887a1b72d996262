package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskingHandler(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewJSONHandler(&buf, nil)))

	log.Info("bot started",
		slog.String("bot_token", "123456:ABC-secret"),
		slog.String("username", "rose_corner_bot"),
	)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "***", record["bot_token"])
	assert.Equal(t, "rose_corner_bot", record["username"])
}

func TestMaskingHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewJSONHandler(&buf, nil))).
		With(slog.String("routing_key", "tok-rose"))

	log.Info("resolved")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "***", record["routing_key"])
}

func TestNew_WithSentryFanout(t *testing.T) {
	// Without sentry.Init the handler reports into a no-op hub, so this
	// only has to build and accept records without panicking.
	log := New(Options{Level: "warn", Format: "json", SentryEnabled: true})
	require.NotNil(t, log)

	log.Warn("delivery failed", slog.String("tenant_id", "rose-corner"))
	assert.False(t, log.Enabled(context.Background(), slog.LevelDebug))
}
