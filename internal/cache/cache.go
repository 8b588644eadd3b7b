// Package cache memoizes statistics responses in Redis. It is best-effort:
// any Redis failure is logged and the loader runs as if the cache were
// absent.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/logger"
)

const (
	keyPrefix  = "metadata-search:"
	DefaultTTL = 5 * time.Minute
)

// Cache stores JSON-encoded values under a fixed TTL. A nil *Cache is
// valid and never caches.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// New wraps client. A non-positive ttl uses DefaultTTL.
func New(client *redis.Client, ttl time.Duration, log logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl, logger: log}
}

// Key joins parts under the service prefix.
func Key(parts ...string) string {
	return keyPrefix + strings.Join(parts, ":")
}

// Fetch returns the cached value for key, or runs load and stores its
// result. Load errors are returned and never cached.
func Fetch[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return load(ctx)
	}

	log := logger.FromContextOr(ctx, c.logger)

	if v, ok := c.get(ctx, log, key); ok {
		var out T
		if err := json.Unmarshal(v, &out); err == nil {
			return out, nil
		}
		log.Warn("Discarding undecodable cache entry", logger.String("key", key))
	}

	out, err := load(ctx)
	if err != nil {
		return out, err
	}

	data, err := json.Marshal(out)
	if err != nil {
		log.Warn("Cache encode failed", logger.String("key", key), logger.Error(err))
		return out, nil
	}
	if err = c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Warn("Cache write failed", logger.String("key", key), logger.Error(err))
	}
	return out, nil
}

func (c *Cache) get(ctx context.Context, log logger.Logger, key string) ([]byte, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false
	case err != nil:
		log.Warn("Cache read failed", logger.String("key", key), logger.Error(err))
		return nil, false
	}
	log.Debug("Cache hit", logger.String("key", key))
	return data, true
}

// Ping reports whether Redis answers. It backs the readiness check.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
