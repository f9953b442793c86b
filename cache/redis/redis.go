// Package redis provides a Redis implementation of pandora.ToolCache, for sharing tool results
// across server instances.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pandora"
	goredis "github.com/redis/go-redis/v9"
)

// Cache stores tool results in Redis.
type Cache struct {
	client goredis.UniversalClient
	prefix string
}

var _ pandora.ToolCache = (*Cache)(nil)

// Option configures a Cache.
type Option func(*Cache)

// WithPrefix prepends prefix to every key.
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// New wraps an existing client.
func New(client goredis.UniversalClient, options ...Option) *Cache {
	c := &Cache{client: client}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr, password string, options ...Option) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, goerr.Wrap(err, "failed to connect to redis", goerr.V("addr", addr))
	}
	return New(client, options...), nil
}

// Get implements pandora.ToolCache.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, goerr.Wrap(err, "failed to get cache entry", goerr.V("key", key))
	}
	return v, true, nil
}

// Set implements pandora.ToolCache. A non-positive ttl keeps the entry without expiry.
func (c *Cache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return goerr.Wrap(err, "failed to set cache entry", goerr.V("key", key))
	}
	return nil
}

// Close closes the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}
