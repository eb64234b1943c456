package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/scholarwatch/scholarship-watcher/internal/domain"
)

const cacheKey = "catalog:countries"

// RedisCache wraps a Provider with a Redis-backed cache. The TTL matches the
// public Cache-Control max-age served by the countries endpoint.
type RedisCache struct {
	client *redis.Client
	inner  Provider
	logger *slog.Logger
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, inner Provider, logger *slog.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		inner:  inner,
		logger: logger,
		ttl:    time.Hour,
	}
}

// Countries serves from cache when possible. Cache failures fall through to
// the inner provider; only the inner provider's errors are surfaced.
func (c *RedisCache) Countries(ctx context.Context) ([]domain.Country, error) {
	if data, err := c.client.Get(ctx, cacheKey).Bytes(); err == nil {
		var countries []domain.Country
		if err := json.Unmarshal(data, &countries); err == nil {
			return countries, nil
		}
		c.logger.Warn("discarding malformed catalog cache entry")
		c.client.Del(ctx, cacheKey)
	}

	countries, err := c.inner.Countries(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(countries); err == nil {
		if err := c.client.Set(ctx, cacheKey, data, c.ttl).Err(); err != nil {
			c.logger.Warn("failed to cache catalog", "error", err)
		}
	}

	return countries, nil
}
