package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// hook is a named teardown step registered during startup.
type hook struct {
	name string
	fn   func(context.Context) error
}

// Shutdown fans registered teardown steps out in parallel and waits for
// all of them before reporting the combined result. Steps are independent
// of each other, so a slow Redis close does not hold up the bot fleet.
type Shutdown struct {
	mu    sync.Mutex
	hooks []hook
	log   *slog.Logger
}

func NewShutdown(log *slog.Logger) *Shutdown {
	if log == nil {
		log = slog.Default()
	}

	return &Shutdown{log: log}
}

// Register adds a teardown step under the given name. Nil steps are ignored.
func (s *Shutdown) Register(name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}

	s.mu.Lock()
	s.hooks = append(s.hooks, hook{name: name, fn: fn})
	s.mu.Unlock()
}

// Execute runs every registered step concurrently, bounded by ctx, and
// returns the joined errors of the steps that failed.
func (s *Shutdown) Execute(ctx context.Context) error {
	s.mu.Lock()
	hooks := append([]hook(nil), s.hooks...)
	s.mu.Unlock()

	started := time.Now()
	s.log.Info("shutting down", slog.Int("steps", len(hooks)))

	results := make(chan error, len(hooks))

	var wg sync.WaitGroup
	for _, h := range hooks {
		wg.Add(1)
		go func(h hook) {
			defer wg.Done()

			if err := h.fn(ctx); err != nil {
				s.log.Error("shutdown step failed",
					slog.String("step", h.name),
					slog.Any("error", err))
				results <- fmt.Errorf("%s: %w", h.name, err)
				return
			}

			s.log.Debug("shutdown step done", slog.String("step", h.name))
		}(h)
	}

	wg.Wait()
	close(results)

	errs := make([]error, 0, len(hooks))
	for err := range results {
		errs = append(errs, err)
	}

	s.log.Info("shutdown complete",
		slog.Duration("elapsed", time.Since(started)),
		slog.Int("failed", len(errs)))

	return errors.Join(errs...)
}
