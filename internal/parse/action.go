package parse

import "regexp"

// CartAction is the customer's intent for one segment.
type CartAction string

const (
	// Insertion adds the item to the cart.
	Insertion CartAction = "insertion"

	// Modification removes or changes an item already in the cart. Quantities
	// of modification segments are negative.
	Modification CartAction = "modification"

	// Question asks about an item. Question segments are enriched with stock
	// figures but never added to the cart.
	Question CartAction = "question"
)

// IsValid reports whether a is a recognised cart action.
func (a CartAction) IsValid() bool {
	switch a {
	case Insertion, Modification, Question:
		return true
	}
	return false
}

var (
	questionPattern = regexp.MustCompile(
		`(?i)\b(?:do you|how many|how much|does|what are)\b`)
	modificationPattern = regexp.MustCompile(
		`(?i)\b(?:actually remove|actually change|remove|change|swap|replace|don'?t want|take away|modify|adjust)\b`)
)

// Classify labels segment by intent phrase. Question intent takes precedence
// over modification intent, so "do you have to remove the latte" is a
// question; anything else is an insertion.
func Classify(segment string) CartAction {
	switch {
	case questionPattern.MatchString(segment):
		return Question
	case modificationPattern.MatchString(segment):
		return Modification
	default:
		return Insertion
	}
}
