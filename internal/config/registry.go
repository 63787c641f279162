package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/provider/embeddings"
)

// ErrProviderNotRegistered is returned by [Factories.Create] when entry.Name
// has no factory.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Factory builds one provider from its config block.
type Factory[P any] func(ProviderEntry) (P, error)

// Factories is a named set of constructors for one provider kind. The zero
// value is not usable; see [NewFactories].
type Factories[P any] struct {
	kind string

	mu sync.RWMutex
	m  map[string]Factory[P]
}

// NewFactories returns an empty table for providers of the given kind. kind
// only appears in error messages.
func NewFactories[P any](kind string) *Factories[P] {
	return &Factories[P]{kind: kind, m: make(map[string]Factory[P])}
}

// Register binds name to fn, replacing any earlier binding.
func (f *Factories[P]) Register(name string, fn Factory[P]) {
	f.mu.Lock()
	f.m[name] = fn
	f.mu.Unlock()
}

// Create runs the factory bound to entry.Name.
func (f *Factories[P]) Create(entry ProviderEntry) (P, error) {
	f.mu.RLock()
	fn, ok := f.m[entry.Name]
	f.mu.RUnlock()
	if !ok {
		var zero P
		return zero, fmt.Errorf("%w: %s/%q", ErrProviderNotRegistered, f.kind, entry.Name)
	}
	p, err := fn(entry)
	if err != nil {
		var zero P
		return zero, fmt.Errorf("config: %s/%q: %w", f.kind, entry.Name, err)
	}
	return p, nil
}

// Names returns the bound names in sorted order.
func (f *Factories[P]) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Sorted(maps.Keys(f.m))
}

// Registry holds one [Factories] table per provider kind.
type Registry struct {
	Embeddings *Factories[embeddings.Provider]
}

// NewRegistry returns a registry with every table empty.
func NewRegistry() *Registry {
	return &Registry{
		Embeddings: NewFactories[embeddings.Provider]("embeddings"),
	}
}
