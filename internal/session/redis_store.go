package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/floramarket/florabot/internal/tenant"
)

const (
	sessionScanBatchCount = 100
)

var _ Store = (*RedisStore)(nil)

// RedisStore persists sessions in Redis as JSON values with a TTL safety net
// slightly beyond the configured inactivity window.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// NewRedisStore initializes a Redis-backed Store. ttl bounds how long an
// untouched session survives even if the sweep never runs.
func NewRedisStore(client *redis.Client, ttl time.Duration, log *slog.Logger) *RedisStore {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// GetOrCreate returns the stored session or a fresh one in StateNew.
func (s *RedisStore) GetOrCreate(ctx context.Context, tenantID tenant.ID, userID int64) (*Session, error) {
	key := sessionKey(tenantID, userID)

	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &Session{
				TenantID:       tenantID,
				UserID:         userID,
				State:          StateNew,
				LastActivityAt: time.Now().UTC(),
			}, nil
		}

		s.log.Error("failed to load session", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		s.log.Error("failed to decode session", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	return &sess, nil
}

// Save upserts the session and refreshes its activity timestamp.
func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	sess.LastActivityAt = time.Now().UTC()

	data, err := json.Marshal(sess)
	if err != nil {
		s.log.Error("failed to encode session", slog.Int64("user_id", sess.UserID), slog.Any("error", err))
		return err
	}

	key := sessionKey(sess.TenantID, sess.UserID)
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.log.Error("failed to save session", slog.Int64("user_id", sess.UserID), slog.Any("error", err))
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// Delete removes the stored session for the pair.
func (s *RedisStore) Delete(ctx context.Context, tenantID tenant.ID, userID int64) error {
	if err := s.client.Del(ctx, sessionKey(tenantID, userID)).Err(); err != nil {
		s.log.Error("failed to delete session", slog.Int64("user_id", userID), slog.Any("error", err))
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// FindStale scans the tenant's sessions and returns those untouched since
// cutoff, resuming at cursor.
func (s *RedisStore) FindStale(ctx context.Context, tenantID tenant.ID, cutoff time.Time, limit int, cursor uint64) ([]*Session, uint64, error) {
	if limit <= 0 {
		limit = sessionScanBatchCount
	}

	var stale []*Session

	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, sessionScanPattern(tenantID), sessionScanBatchCount).Result()
		if err != nil {
			s.log.Error("failed to scan sessions", slog.Any("error", err))
			return nil, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return nil, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}

			var sess Session
			if err := json.Unmarshal([]byte(data), &sess); err != nil {
				s.log.Warn("skipping undecodable session", slog.String("key", key), slog.Any("error", err))
				continue
			}

			if sess.LastActivityAt.Before(cutoff) {
				copied := sess
				stale = append(stale, &copied)
			}
		}

		cursor = nextCursor
		if cursor == 0 || len(stale) >= limit {
			return stale, cursor, nil
		}
	}
}

// DeleteStale removes every session of the tenant older than cutoff.
func (s *RedisStore) DeleteStale(ctx context.Context, tenantID tenant.ID, cutoff time.Time) (int, error) {
	deleted := 0
	var cursor uint64

	for {
		stale, nextCursor, err := s.FindStale(ctx, tenantID, cutoff, sessionScanBatchCount, cursor)
		if err != nil {
			return deleted, err
		}

		for _, sess := range stale {
			if err := s.Delete(ctx, sess.TenantID, sess.UserID); err != nil {
				return deleted, err
			}
			deleted++
		}

		cursor = nextCursor
		if cursor == 0 {
			return deleted, nil
		}
	}
}

// sessionKey embeds the tenant id so keys from different tenants never
// collide. The admin namespace uses the empty tenant segment.
func sessionKey(tenantID tenant.ID, userID int64) string {
	return fmt.Sprintf("session:%s:%d", tenantID, userID)
}

func sessionScanPattern(tenantID tenant.ID) string {
	return fmt.Sprintf("session:%s:*", tenantID)
}
