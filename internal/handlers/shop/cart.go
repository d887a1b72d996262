// Package shop implements the handler set served by every tenant shop bot:
// catalog browsing, the cart, and order placement.
package shop

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/floramarket/florabot/internal/tenant"
)

const cartTTL = 7 * 24 * time.Hour

// CartStore keeps carts in a Redis hash per (tenant, user), outside the
// session so callback handlers can reach them without a session lock.
type CartStore struct {
	client *redis.Client
	log    *slog.Logger
}

// NewCartStore creates a Redis-backed cart store.
func NewCartStore(client *redis.Client, log *slog.Logger) *CartStore {
	if log == nil {
		log = slog.Default()
	}
	return &CartStore{client: client, log: log}
}

func cartKey(tenantID tenant.ID, userID int64) string {
	return fmt.Sprintf("cart:%s:%d", tenantID, userID)
}

// Add increments the quantity of one product and refreshes the cart TTL.
func (s *CartStore) Add(ctx context.Context, tenantID tenant.ID, userID, productID int64) error {
	key := cartKey(tenantID, userID)

	pipe := s.client.TxPipeline()
	pipe.HIncrBy(ctx, key, strconv.FormatInt(productID, 10), 1)
	pipe.Expire(ctx, key, cartTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cart add: %w", err)
	}
	return nil
}

// Items returns the cart as productID -> quantity.
func (s *CartStore) Items(ctx context.Context, tenantID tenant.ID, userID int64) (map[int64]int, error) {
	raw, err := s.client.HGetAll(ctx, cartKey(tenantID, userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("cart read: %w", err)
	}

	items := make(map[int64]int, len(raw))
	for field, value := range raw {
		productID, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			s.log.Warn("skipping malformed cart entry", slog.String("field", field))
			continue
		}
		qty, err := strconv.Atoi(value)
		if err != nil || qty <= 0 {
			continue
		}
		items[productID] = qty
	}

	return items, nil
}

// Clear drops the whole cart.
func (s *CartStore) Clear(ctx context.Context, tenantID tenant.ID, userID int64) error {
	if err := s.client.Del(ctx, cartKey(tenantID, userID)).Err(); err != nil {
		return fmt.Errorf("cart clear: %w", err)
	}
	return nil
}
