// Package order turns a spoken-order transcription into a priced, structured
// order report.
//
// The pipeline per transcription is:
//
//	Segment → (per segment, concurrently) Extract → Classify → Assemble → Enrich
//	        → BuildReport
//
// Segments are processed in parallel with a bounded worker count and each line
// item's catalog lookups fan out one goroutine per slot. Results are written to
// index-addressed slots, so the report is deterministic regardless of which
// worker finishes first. Per-slot failures never fail the order: they leave the
// slot at the unknown sentinel and mark the report partial.
package order

import (
	"encoding/json"

	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/parse"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/catalog"
)

// Kind is the menu section a line item belongs to.
type Kind string

const (
	KindCoffee   Kind = "Coffee"
	KindBeverage Kind = "Beverage"
	KindFood     Kind = "Food"
	KindBakery   Kind = "Bakery"
)

// DefaultAttribute is the value of an unspecified temperature, size, or milk
// type on coffee and beverage items.
const DefaultAttribute = "regular"

// LineItem is one structured order line.
//
// Quantities, Prices and CalorieRanges are parallel arrays indexed by slot:
// slot 0 is the base item, followed by each add-on, each sweetener, and the
// milk type when it is not [DefaultAttribute]. [LineItem.SlotNames] returns
// the names in the same order.
type LineItem struct {
	Kind          Kind                   `json:"-"`
	Name          string                 `json:"name"`
	Quantities    []int                  `json:"quantities"`
	Prices        []float64              `json:"prices"`
	CalorieRanges []catalog.CalorieRange `json:"calorie_ranges"`
	Temperature   string                 `json:"temperature,omitempty"`
	Size          string                 `json:"size,omitempty"`
	MilkType      string                 `json:"milk_type,omitempty"`
	AddOns        []string               `json:"add_ons,omitempty"`
	Sweeteners    []string               `json:"sweeteners,omitempty"`
	CartAction    parse.CartAction       `json:"cart_action"`
	Allergies     string                 `json:"allergies,omitempty"`
}

// ReportKey is the key the item is encoded under, e.g. "CoffeeItem".
func (li LineItem) ReportKey() string {
	return string(li.Kind) + "Item"
}

// HasMilk reports whether the milk type occupies a slot.
func (li LineItem) HasMilk() bool {
	return li.MilkType != "" && li.MilkType != DefaultAttribute
}

// SlotNames returns the catalog name for every slot in slot order.
func (li LineItem) SlotNames() []string {
	names := make([]string, 0, 1+len(li.AddOns)+len(li.Sweeteners)+1)
	names = append(names, li.Name)
	names = append(names, li.AddOns...)
	names = append(names, li.Sweeteners...)
	if li.HasMilk() {
		names = append(names, li.MilkType)
	}
	return names
}

// Aligned reports whether the parallel arrays all have one entry per slot.
func (li LineItem) Aligned() bool {
	n := len(li.SlotNames())
	return len(li.Quantities) == n && len(li.Prices) == n && len(li.CalorieRanges) == n
}

// withoutAllergies returns a copy of li for the consumer-facing report.
func (li LineItem) withoutAllergies() LineItem {
	li.Allergies = ""
	return li
}

// lineItemFields has LineItem's fields but none of its methods, so encoding
// it does not recurse into [LineItem.MarshalJSON].
type lineItemFields LineItem

// MarshalJSON encodes li as a single-key object keyed by [LineItem.ReportKey]:
//
//	{"CoffeeItem": {"name": "coffee", "quantities": [2, 2, 1, 2], ...}}
func (li LineItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]lineItemFields{li.ReportKey(): lineItemFields(li)})
}

// OrderReport is the result of processing one transcription.
type OrderReport struct {
	// Items are the insertion and modification line items in utterance
	// order, without allergy information.
	Items []LineItem `json:"items"`

	// Questions are question segments enriched with stock figures. They are
	// never added to the cart.
	Questions []LineItem `json:"questions"`

	// Unrecognized lists segments that named no menu item.
	Unrecognized []string `json:"unrecognized"`

	// Failures lists every enrichment slot left at the unknown sentinel.
	Failures []SlotFailure `json:"failures,omitempty"`

	// Partial is true when Failures is non-empty.
	Partial bool `json:"partial"`
}

// SegmentResult is the outcome of the per-segment pipeline.
type SegmentResult struct {
	Index   int
	Segment string
	Action  parse.CartAction

	// Item is nil when Err is non-nil.
	Item *LineItem

	// CorrectedQuantities is the catalog-membership quantity derivation of
	// the segment. It is diagnostic only.
	CorrectedQuantities []string

	Failures []SlotFailure
	Err      error
}
