// Package memory provides an in-process implementation of cache.Cache.
//
// It is the default cache when no Redis address is configured. Entries may
// carry a TTL; expired entries are treated as absent and dropped lazily on
// access.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/cache"
)

var _ cache.Cache = (*Cache)(nil)

type entry struct {
	value   []byte
	expires time.Time // zero: never
}

// Cache is a mutex-guarded map. The zero value is not usable; call [New].
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// Option is a functional option for [New].
type Option func(*Cache)

// WithTTL expires entries d after they are set. Zero (the default) keeps
// entries for the life of the process.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) { c.ttl = d }
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New returns an empty [Cache].
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Exists implements cache.Cache.
func (c *Cache) Exists(_ context.Context, key string) (bool, error) {
	_, ok := c.load(key)
	return ok, nil
}

// Get implements cache.Cache. The returned slice is a copy.
func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := c.load(key)
	if !ok {
		return nil, fmt.Errorf("memory cache: get %q: %w", key, cache.ErrMiss)
	}
	return append([]byte(nil), v...), nil
}

// Set implements cache.Cache. Concurrent writers to one key race; the last
// one wins.
func (c *Cache) Set(_ context.Context, key string, value []byte) error {
	e := entry{value: append([]byte(nil), value...)}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including any not yet evicted
// after expiry.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) load(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		c.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the key.
		if cur, ok := c.entries[key]; ok && cur.expires.Equal(e.expires) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}
