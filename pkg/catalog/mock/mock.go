// Package mock provides a test double for the catalog.Lookup interface.
//
// Use Catalog to serve pre-canned menu items without a database and to verify
// which names the order pipeline looked up.
//
// Example:
//
//	c := &mock.Catalog{
//	    Items: map[string]catalog.Item{
//	        "latte": {Name: "latte", Price: 4.5, Stock: 20},
//	    },
//	}
//	item, _ := c.Lookup(ctx, "latte")
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/catalog"
)

// LookupCall records a single invocation of Lookup.
type LookupCall struct {
	// Name is the string passed to Lookup.
	Name string
}

// Catalog is a mock implementation of catalog.Lookup. It is safe for
// concurrent use.
type Catalog struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// Items maps a requested name to the item returned for it. Names not in
	// the map yield catalog.ErrNotFound.
	Items map[string]catalog.Item

	// Errs maps a requested name to an error returned instead of the item.
	Errs map[string]error

	// Delays maps a requested name to a latency applied before answering.
	// A delayed lookup returns ctx.Err() if ctx ends first.
	Delays map[string]time.Duration

	// --- Call records ---

	// Calls records every call to Lookup in arrival order.
	Calls []LookupCall
}

var _ catalog.Lookup = (*Catalog)(nil)

// Lookup records the call and answers from Errs, then Items.
func (c *Catalog) Lookup(ctx context.Context, name string) (catalog.Item, error) {
	c.mu.Lock()
	c.Calls = append(c.Calls, LookupCall{Name: name})
	delay := c.Delays[name]
	err := c.Errs[name]
	item, ok := c.Items[name]
	c.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return catalog.Item{}, ctx.Err()
		case <-t.C:
		}
	}
	if err != nil {
		return catalog.Item{}, err
	}
	if !ok {
		return catalog.Item{}, fmt.Errorf("mock catalog: %q: %w", name, catalog.ErrNotFound)
	}
	return item, nil
}

// CallCount returns how many times Lookup was called.
func (c *Catalog) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}

// Names returns the looked-up names in arrival order.
func (c *Catalog) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.Calls))
	for i, call := range c.Calls {
		out[i] = call.Name
	}
	return out
}

// Reset clears all recorded calls.
func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = nil
}
