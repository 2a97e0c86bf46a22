package geo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheTTL = 10 * time.Minute

// cacheKey buckets coordinates to ~11m so nearby samples share an entry.
func cacheKey(p Point) string {
	return fmt.Sprintf("geo:region:%.4f:%.4f", p.Lat, p.Lon)
}

// CachedResolver fronts a Resolver with a Redis lookaside cache. Cache
// failures degrade to a direct resolve; they are logged, never surfaced.
type CachedResolver struct {
	inner  Resolver
	client *redis.Client
	logger *slog.Logger
}

// NewCachedResolver wraps inner with a Redis cache. A nil client returns
// inner unchanged.
func NewCachedResolver(inner Resolver, client *redis.Client, logger *slog.Logger) Resolver {
	if client == nil {
		return inner
	}
	return &CachedResolver{inner: inner, client: client, logger: logger}
}

func (c *CachedResolver) Resolve(ctx context.Context, p Point) (string, error) {
	key := cacheKey(p)
	if name, err := c.client.Get(ctx, key).Result(); err == nil {
		return name, nil
	} else if err != redis.Nil {
		c.logger.WarnContext(ctx, "geo cache read failed", "error", err.Error())
	}

	name, err := c.inner.Resolve(ctx, p)
	if err != nil {
		return "", err
	}
	if err := c.client.Set(ctx, key, name, cacheTTL).Err(); err != nil {
		c.logger.WarnContext(ctx, "geo cache write failed", "error", err.Error())
	}
	return name, nil
}
