package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

var ErrRequestInProgress = errors.New("request with this key is already in progress")

// Operation is the guarded unit of work. Its result is cached for
// duplicate calls with the same key.
type Operation func(ctx context.Context) (interface{}, error)

type Result struct {
	Response  interface{}
	FromCache bool
}

// Manager runs an operation at most once per key, returning the cached
// response to concurrent or repeated callers.
type Manager interface {
	Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error)
}

type manager struct {
	store Store
	log   *slog.Logger
}

func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}
	return &manager{store: store, log: log}
}

func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	if fn == nil {
		return nil, errors.New("operation fn cannot be nil")
	}

	for {
		locked, err := m.store.Lock(ctx, key, 5*time.Minute)
		if err != nil {
			return nil, err
		}

		if locked {
			// A replay acquires the lock as easily as a first run did, so
			// the stored record decides whether fn still needs to execute.
			record, err := m.store.Get(ctx, key)
			if err != nil {
				m.releaseLock(ctx, key)
				return nil, err
			}
			if record != nil && record.Status == StatusCompleted {
				m.releaseLock(ctx, key)
				return cachedResult(record)
			}
			return m.run(ctx, key, ttl, fn)
		}

		record, err := m.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}

		switch {
		case record == nil:
			// Lock holder has not written anything yet; wait for it.
		case record.Status == StatusProcessing:
			return nil, ErrRequestInProgress
		case record.Status == StatusCompleted:
			return cachedResult(record)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func cachedResult(record *Record) (*Result, error) {
	var response interface{}
	if len(record.Response) > 0 {
		if err := json.Unmarshal(record.Response, &response); err != nil {
			return nil, err
		}
	}
	return &Result{Response: response, FromCache: true}, nil
}

func (m *manager) releaseLock(ctx context.Context, key string) {
	if err := m.store.ReleaseLock(ctx, key); err != nil {
		m.log.Warn("idempotency lock release failed", slog.String("key", key), slog.Any("error", err))
	}
}

func (m *manager) run(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	defer m.releaseLock(ctx, key)

	result, err := fn(ctx)
	if err != nil {
		// Failed operations are not recorded; the next attempt retries.
		return nil, err
	}

	responseBytes, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}

	if err := m.store.Set(ctx, key, &Record{
		Status:   StatusCompleted,
		Response: responseBytes,
	}, ttl); err != nil {
		return nil, err
	}

	return &Result{Response: result, FromCache: false}, nil
}
