// Package cache provides a Redis-backed cache-aside component. It is
// constructed once per process and passed by reference; there is no
// ambient global client.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"meetsync/internal/observability"
)

// Cache wraps a Redis client with JSON helpers and a default TTL.
// A nil client degrades to a no-op cache (every read is a miss).
type Cache struct {
	rdb        *redis.Client
	defaultTTL time.Duration
	log        *observability.Logger
}

// New returns a Cache around rdb. rdb may be nil.
func New(rdb *redis.Client, defaultTTL time.Duration) *Cache {
	return &Cache{
		rdb:        rdb,
		defaultTTL: defaultTTL,
		log:        observability.Component("cache"),
	}
}

// Connect dials Redis at addr, returning nil when it is unreachable so
// the service can run without a cache.
func Connect(addr string) *redis.Client {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		observability.Component("cache").Warn("Redis unavailable, continuing without cache",
			"addr", addr, "error", err)
		return nil
	}
	return rdb
}

// GetJSON attempts to get the key and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil || c.rdb == nil {
		return false, nil
	}
	s, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key. A zero ttl uses the default.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, ttl).Err()
}

// Delete removes keys, best-effort.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if c == nil || c.rdb == nil || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("cache delete failed", "error", err)
	}
}

// Aside tries Redis first; on miss it calls fetch (which must populate
// dest), then stores the result with ttl, best-effort.
func (c *Cache) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := c.GetJSON(ctx, key, dest)
	if err != nil {
		// A broken cache must not break reads.
		c.log.Warn("cache read failed", "key", key, "error", err)
	}
	if found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	if err := c.SetJSON(ctx, key, dest, ttl); err != nil {
		c.log.Warn("cache write failed", "key", key, "error", err)
	}
	return nil
}
