// Package redis provides a Redis-backed implementation of cache.Cache using
// go-redis v9.
//
// All keys are stored under an optional prefix so several BeanHub
// deployments can share one Redis database.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/cache"
)

var _ cache.Cache = (*Cache)(nil)

// Config holds connection settings for [New].
type Config struct {
	// Addr is the host:port of the Redis server. Required.
	Addr string

	// Password is the AUTH password. Empty disables AUTH.
	Password string

	// DB selects the logical database.
	DB int

	// TTL expires entries after they are set. Zero keeps them forever.
	TTL time.Duration

	// Prefix is prepended to every key.
	Prefix string
}

// Cache implements cache.Cache on a Redis server.
type Cache struct {
	client *goredis.Client
	ttl    time.Duration
	prefix string
}

// New connects to the server described by cfg and verifies it with PING.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis cache: addr must not be empty")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis cache: ping %s: %w", cfg.Addr, err)
	}
	return NewFromClient(client, cfg.TTL, cfg.Prefix), nil
}

// NewFromClient wraps an existing client. The caller keeps ownership of
// client unless it later calls [Cache.Close].
func NewFromClient(client *goredis.Client, ttl time.Duration, prefix string) *Cache {
	return &Cache{client: client, ttl: ttl, prefix: prefix}
}

// Exists implements cache.Cache.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("redis cache: exists %q: %w", key, err)
	}
	return n > 0, nil
}

// Get implements cache.Cache.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("redis cache: get %q: %w", key, cache.ErrMiss)
	}
	if err != nil {
		return nil, fmt.Errorf("redis cache: get %q: %w", key, err)
	}
	return b, nil
}

// Set implements cache.Cache.
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis cache: set %q: %w", key, err)
	}
	return nil
}

// Ping checks connectivity. It is used by the readiness probe.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}
