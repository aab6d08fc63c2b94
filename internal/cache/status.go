// Package cache provides a Redis-backed read-through cache for order
// status polling. The database stays the source of truth; cache misses
// and Redis errors both fall through to it.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xenking/storefront-api/internal/domain/order"
)

const statusKey = "order_status:%s"

// StatusCache caches order statuses with a short TTL. A nil *StatusCache
// is valid and disables caching.
type StatusCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a StatusCache on the given client.
func New(rdb *redis.Client, ttl time.Duration) *StatusCache {
	return &StatusCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached status for an order, if present.
func (c *StatusCache) Get(ctx context.Context, orderID string) (order.Status, bool) {
	if c == nil {
		return "", false
	}
	v, err := c.rdb.Get(ctx, fmt.Sprintf(statusKey, orderID)).Result()
	if err != nil {
		return "", false
	}
	s := order.Status(v)
	if !s.Valid() {
		return "", false
	}
	return s, true
}

// Set stores the status for an order. Errors are ignored: the cache is an
// optimization, not a dependency.
func (c *StatusCache) Set(ctx context.Context, orderID string, s order.Status) {
	if c == nil {
		return
	}
	_ = c.rdb.Set(ctx, fmt.Sprintf(statusKey, orderID), string(s), c.ttl).Err()
}
