// Package cache provides a redis-backed cache for computed stats views.
// Entries live for a short TTL and the whole namespace is invalidated after
// each sync run via a version counter, avoiding key scans.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"advisor_analytics_backend/internal/analytics/service"
	"advisor_analytics_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

const versionKey = "analytics:stats:version"

// Cache implements service.StatsCache on redis.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	log *logger.Logger
}

// New creates a stats cache. Returns an error when the redis URL cannot be
// parsed; callers treat a nil cache as caching disabled.
func New(redisURL string, ttl time.Duration, log *logger.Logger) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Cache{rdb: redis.NewClient(opt), ttl: ttl, log: log}, nil
}

// NewWithClient wraps an existing redis client. Intended for tests.
func NewWithClient(rdb *redis.Client, ttl time.Duration, log *logger.Logger) *Cache {
	return &Cache{rdb: rdb, ttl: ttl, log: log}
}

// GetStats returns a cached stats result. Cache failures degrade to a miss.
func (c *Cache) GetStats(ctx context.Context, key string) (*service.StatsResult, bool) {
	data, err := c.rdb.Get(ctx, c.versionedKey(ctx, key)).Bytes()
	if err != nil {
		return nil, false
	}

	var result service.StatsResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.log.Warn("stats cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	return &result, true
}

// SetStats stores a computed stats result. Failures are logged, never
// surfaced: the cache is an optimization, not a dependency.
func (c *Cache) SetStats(ctx context.Context, key string, result *service.StatsResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.log.Warn("stats cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, c.versionedKey(ctx, key), data, c.ttl).Err(); err != nil {
		c.log.Warn("stats cache write failed", "key", key, "error", err)
	}
}

// Invalidate bumps the namespace version, orphaning every cached entry.
// Orphans expire via their TTL.
func (c *Cache) Invalidate(ctx context.Context) {
	if err := c.rdb.Incr(ctx, versionKey).Err(); err != nil {
		c.log.Warn("stats cache invalidation failed", "error", err)
	}
}

// Close releases the redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

func (c *Cache) versionedKey(ctx context.Context, key string) string {
	version, err := c.rdb.Get(ctx, versionKey).Int64()
	if err != nil {
		version = 0
	}
	return fmt.Sprintf("analytics:stats:v%d:%s", version, key)
}
