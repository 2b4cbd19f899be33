package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/taskward/taskward/internal/model"
)

// CacheConfig holds settings for the Redis existence cache.
type CacheConfig struct {
	// Prefix is prepended to every cache key.
	Prefix string
	// TTL bounds how long a cached existence answer is trusted.
	TTL time.Duration
}

// DefaultCacheConfig returns the default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Prefix: "taskward:exists:",
		TTL:    30 * time.Second,
	}
}

// Cache decorates an Access with a Redis read-through cache over the three
// existence checks, the hottest lookups on the validation path. Everything
// else passes straight through.
//
// Only positive answers are cached: a "does not exist" result may flip to
// true the moment the caller's transaction commits, so caching it would
// make validation reject records that exist.
//
// Redis failures degrade to direct store reads. A cache outage must never
// fail a validation.
type Cache struct {
	Access

	client *redis.Client
	config CacheConfig
	logger *zap.Logger
}

// NewCache wraps inner with a Redis existence cache.
func NewCache(inner Access, client *redis.Client, config CacheConfig, logger *zap.Logger) *Cache {
	if config.Prefix == "" {
		config.Prefix = DefaultCacheConfig().Prefix
	}
	if config.TTL <= 0 {
		config.TTL = DefaultCacheConfig().TTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		Access: inner,
		client: client,
		config: config,
		logger: logger,
	}
}

// ListExists reports list existence through the cache.
func (c *Cache) ListExists(ctx context.Context, id string) (bool, error) {
	return c.cachedExists(ctx, model.TableLists, id, c.Access.ListExists)
}

// ItemExists reports item existence through the cache.
func (c *Cache) ItemExists(ctx context.Context, id string) (bool, error) {
	return c.cachedExists(ctx, model.TableItems, id, c.Access.ItemExists)
}

// UserExists reports user existence through the cache.
func (c *Cache) UserExists(ctx context.Context, id string) (bool, error) {
	return c.cachedExists(ctx, model.TableUsers, id, c.Access.UserExists)
}

// Invalidate drops the cached existence answer for one record, for callers
// that delete records and immediately revalidate.
func (c *Cache) Invalidate(ctx context.Context, table, id string) error {
	return c.client.Del(ctx, c.key(table, id)).Err()
}

func (c *Cache) key(table, id string) string {
	return c.config.Prefix + table + ":" + id
}

func (c *Cache) cachedExists(
	ctx context.Context,
	table, id string,
	lookup func(context.Context, string) (bool, error),
) (bool, error) {
	if id == "" {
		return false, nil
	}
	key := c.key(table, id)

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil && cached == "1" {
		return true, nil
	}
	if err != nil && err != redis.Nil {
		c.logger.Warn("existence cache read failed, falling back to store",
			zap.String("key", key),
			zap.Error(err))
	}

	exists, err := lookup(ctx, id)
	if err != nil {
		return false, err
	}

	if exists {
		if err := c.client.Set(ctx, key, "1", c.config.TTL).Err(); err != nil {
			c.logger.Warn("existence cache write failed",
				zap.String("key", key),
				zap.Error(err))
		}
	}
	return exists, nil
}
