package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdown_RunsEveryStep(t *testing.T) {
	s := NewShutdown(slog.Default())

	var ran atomic.Int32
	for i := 0; i < 3; i++ {
		s.Register("step", func(context.Context) error {
			ran.Add(1)
			return nil
		})
	}
	s.Register("skipped", nil)

	err := s.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int32(3), ran.Load())
}

func TestShutdown_CollectsFailures(t *testing.T) {
	s := NewShutdown(slog.Default())

	boom := errors.New("connection reset")
	s.Register("redis", func(context.Context) error { return boom })
	s.Register("postgres", func(context.Context) error { return nil })

	err := s.Execute(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "redis")
}
