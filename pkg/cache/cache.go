// Package cache defines the key-value collaborator used to avoid redundant
// catalog and embedding lookups for identical item names.
//
// Cached values are derived data, never authoritative: concurrent writers may
// race on the same key and the last writer wins.
//
// Implementations must be safe for concurrent use.
package cache

import (
	"context"
	"errors"
)

// ErrMiss is returned by [Cache.Get] when key is not present.
var ErrMiss = errors.New("cache: miss")

// Cache is a byte-oriented key-value store.
type Cache interface {
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Get returns the value stored under key, or an error wrapping [ErrMiss].
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
}
