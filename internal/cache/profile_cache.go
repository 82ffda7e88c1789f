package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trailview/service-routes/internal/domain/route"
	"github.com/trailview/service-routes/internal/metrics"
)

// ProfileCache stores encoded elevation payloads keyed by route.
type ProfileCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// OpenRedis opens a client; an empty address disables caching and returns nil.
func OpenRedis(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// NewProfileCache creates a cache. A nil client yields a cache that always misses.
func NewProfileCache(client *redis.Client, prefix string, ttl time.Duration) *ProfileCache {
	if prefix == "" {
		prefix = "trailview:profile:"
	}
	return &ProfileCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *ProfileCache) key(id route.ID) string { return c.prefix + id.String() }

// Get returns the cached payload, or nil on a miss.
func (c *ProfileCache) Get(ctx context.Context, id route.ID) ([]byte, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.ProfileCacheMissesTotal.Inc()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile cache: %w", err)
	}
	metrics.ProfileCacheHitsTotal.Inc()
	return data, nil
}

// Set stores payload for id.
func (c *ProfileCache) Set(ctx context.Context, id route.ID, payload []byte) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Set(ctx, c.key(id), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write profile cache: %w", err)
	}
	return nil
}

// Invalidate drops cached payloads for ids.
func (c *ProfileCache) Invalidate(ctx context.Context, ids ...route.ID) error {
	if c == nil || c.client == nil || len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate profile cache: %w", err)
	}
	return nil
}

// Ping checks connectivity; a disabled cache is always healthy.
func (c *ProfileCache) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}
