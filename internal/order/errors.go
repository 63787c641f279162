package order

import (
	"encoding/json"
	"errors"
)

var (
	// ErrInvalidInput is returned by [Processor.Process] for an empty or
	// whitespace-only transcription.
	ErrInvalidInput = errors.New("order: invalid input")

	// ErrUnrecognizedItem is returned by [Assemble] when a segment names no
	// coffee, beverage, food, or bakery item.
	ErrUnrecognizedItem = errors.New("order: unrecognized item")

	// ErrEnrichmentTimeout marks a slot whose catalog lookup did not answer
	// within the enrichment timeout.
	ErrEnrichmentTimeout = errors.New("order: enrichment timeout")

	// ErrEnrichmentLookupFailed marks a slot whose catalog lookup returned an
	// error, including catalog.ErrNotFound.
	ErrEnrichmentLookupFailed = errors.New("order: enrichment lookup failed")
)

// SlotFailure describes one enrichment slot left with the unknown sentinel
// (zero price, empty calorie range).
type SlotFailure struct {
	// Segment is the zero-based index of the segment in the transcription.
	Segment int

	// Item is the base name of the line item the slot belongs to.
	Item string

	// Slot is the index into the line item's parallel arrays.
	Slot int

	// Name is the catalog name that was looked up for the slot.
	Name string

	// Err wraps [ErrEnrichmentTimeout] or [ErrEnrichmentLookupFailed].
	Err error
}

// MarshalJSON encodes Err as its message.
func (f SlotFailure) MarshalJSON() ([]byte, error) {
	var msg string
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		Segment int    `json:"segment"`
		Item    string `json:"item"`
		Slot    int    `json:"slot"`
		Name    string `json:"name"`
		Error   string `json:"error"`
	}{f.Segment, f.Item, f.Slot, f.Name, msg})
}
