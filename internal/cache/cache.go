// Package cache is a Redis cache-aside helper. Concurrent misses on the same
// key share one load.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/echoesonmars/tabys-back/internal/obs"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	group  singleflight.Group
}

// New returns a cache namespaced by prefix. A nil client yields a cache that
// always loads from the source.
func New(client *redis.Client, prefix string, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// NewRedisClient parses a redis:// URL and checks the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

func (c *Cache) key(k string) string {
	return c.prefix + ":" + k
}

// Fetch returns the cached value for key, or calls load, caches its result
// and returns it. Redis failures degrade to calling load.
func Fetch[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	if c == nil || c.client == nil {
		return load(ctx)
	}

	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	switch {
	case err == nil:
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		obs.Logger.Warn("cache_decode_failed", "key", c.key(key))
	case !errors.Is(err, redis.Nil):
		obs.Logger.Warn("cache_get_failed", "key", c.key(key), "error", err)
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return v, err
		}

		b, err := json.Marshal(v)
		if err != nil {
			return v, nil
		}
		if err := c.client.Set(ctx, c.key(key), b, c.ttl).Err(); err != nil {
			obs.Logger.Warn("cache_set_failed", "key", c.key(key), "error", err)
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return v.(T), nil
}

// Invalidate drops key so the next Fetch reloads it.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	if c == nil || c.client == nil {
		return
	}

	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		obs.Logger.Warn("cache_invalidate_failed", "key", c.key(key), "error", err)
	}
}
