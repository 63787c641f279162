// Package catalog defines the menu lookup collaborator used to enrich parsed
// order line items with price, calorie, allergen and stock data.
//
// Implementations resolve a loosely spoken item name ("glazed donuts",
// "splenda") to the closest menu entry and return [ErrNotFound] when nothing
// is a reasonable match. The order pipeline issues one blocking Lookup per
// name and never retries; retry and failover are the implementation's concern
// (see the resilience package for a circuit-breaking fallback wrapper).
//
// Implementations must be safe for concurrent use.
package catalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned by [Lookup.Lookup] when no menu entry is close
// enough to the requested name.
var ErrNotFound = errors.New("catalog: item not found")

// CalorieRange is a closed calorie interval [Min, Max].
type CalorieRange struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// IsZero reports whether r is the "unknown" sentinel range.
func (r CalorieRange) IsZero() bool {
	return r.Min == 0 && r.Max == 0
}

// Item is one menu entry as returned by a [Lookup].
type Item struct {
	// Name is the canonical menu name of the matched entry.
	Name string `json:"name" yaml:"name"`

	// Kind is the menu section (coffee, beverage, food, bakery, add_on,
	// sweetener, milk). Informational only.
	Kind string `json:"kind,omitempty" yaml:"kind"`

	// Stock is the number of units currently available.
	Stock int `json:"stock" yaml:"stock"`

	// Allergies is a free-text allergen list, e.g. "dairy, gluten".
	Allergies string `json:"allergies" yaml:"allergies"`

	// Calories is the calorie range of one unit.
	Calories CalorieRange `json:"calories" yaml:"calories"`

	// Price is the unit price in the shop's currency.
	Price float64 `json:"price" yaml:"price"`
}

// Lookup resolves a spoken item name to a menu [Item].
type Lookup interface {
	// Lookup returns the menu entry that best matches name, or an error
	// wrapping [ErrNotFound] when no entry is a reasonable match. It must
	// respect ctx cancellation.
	Lookup(ctx context.Context, name string) (Item, error)
}
