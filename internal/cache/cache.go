// Package cache keeps assembled products in Redis keyed by slug.
//
// The cache is optional: a ProductCache built with a nil client turns every
// call into a miss or no-op, so the service runs unchanged without Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/catalog/internal/catalog"
)

// KeyPrefix namespaces product entries.
const KeyPrefix = "catalog:product:"

// DefaultTTL applies when New is given a non-positive TTL.
const DefaultTTL = 5 * time.Minute

// Open connects to the Redis server at url (redis://host:port/db) and pings it.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// ProductCache stores products as JSON.
type ProductCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// New returns a cache over client. client may be nil.
func New(client redis.Cmdable, ttl time.Duration) *ProductCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ProductCache{client: client, ttl: ttl}
}

// Enabled reports whether a Redis client is attached.
func (c *ProductCache) Enabled() bool {
	return c != nil && c.client != nil
}

// Key returns the Redis key for slug.
func Key(slug string) string {
	return KeyPrefix + slug
}

// Get returns the cached product. Redis errors are logged and reported as a miss.
func (c *ProductCache) Get(ctx context.Context, slug string) (catalog.Product, bool) {
	if !c.Enabled() {
		return catalog.Product{}, false
	}

	data, err := c.client.Get(ctx, Key(slug)).Bytes()
	if errors.Is(err, redis.Nil) {
		return catalog.Product{}, false
	}
	if err != nil {
		slog.Warn("product cache read failed", "slug", slug, "error", err)
		return catalog.Product{}, false
	}

	var p catalog.Product
	if err := json.Unmarshal(data, &p); err != nil {
		slog.Warn("product cache entry unreadable", "slug", slug, "error", err)
		return catalog.Product{}, false
	}
	return p, true
}

// Set stores p under its slug.
func (c *ProductCache) Set(ctx context.Context, p catalog.Product) error {
	if !c.Enabled() {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal product %s: %w", p.Slug, err)
	}
	if err := c.client.Set(ctx, Key(p.Slug), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache product %s: %w", p.Slug, err)
	}
	return nil
}

// Invalidate drops the entries for slugs.
func (c *ProductCache) Invalidate(ctx context.Context, slugs ...string) error {
	if !c.Enabled() || len(slugs) == 0 {
		return nil
	}
	keys := make([]string, len(slugs))
	for i, s := range slugs {
		keys[i] = Key(s)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate products: %w", err)
	}
	return nil
}
