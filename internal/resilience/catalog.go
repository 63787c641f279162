package resilience

import (
	"context"
	"errors"

	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/catalog"
)

// CatalogFallback is a [catalog.Lookup] that asks its catalogs in order,
// typically the pgvector store first and the in-memory menu second.
//
// [catalog.ErrNotFound] from a reachable catalog is final: it does not count
// against the breaker and the next catalog is not asked.
type CatalogFallback struct {
	chain *Chain[catalog.Lookup]
}

var _ catalog.Lookup = (*CatalogFallback)(nil)

// NewCatalogFallback returns a fallback whose first choice is primary. Any
// IsAnswer in cfg is replaced.
func NewCatalogFallback(primary catalog.Lookup, primaryName string, cfg BreakerConfig) *CatalogFallback {
	cfg.IsAnswer = func(err error) bool { return errors.Is(err, catalog.ErrNotFound) }
	return &CatalogFallback{chain: NewChain[catalog.Lookup](cfg).Add(primaryName, primary)}
}

// AddFallback appends c after the catalogs already registered.
func (f *CatalogFallback) AddFallback(name string, c catalog.Lookup) {
	f.chain.Add(name, c)
}

// Lookup implements catalog.Lookup.
func (f *CatalogFallback) Lookup(ctx context.Context, name string) (catalog.Item, error) {
	return Try(ctx, f.chain, func(ctx context.Context, c catalog.Lookup) (catalog.Item, error) {
		return c.Lookup(ctx, name)
	})
}

// Names returns the catalog names in the order they are asked.
func (f *CatalogFallback) Names() []string { return f.chain.Names() }

// States returns each catalog's breaker state.
func (f *CatalogFallback) States() map[string]State { return f.chain.States() }
