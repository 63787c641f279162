package parse

import (
	"log/slog"
	"strconv"

	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/lexicon"
)

const (
	// defaultQuantity is the magnitude used for any slot without a resolvable
	// quantity token.
	defaultQuantity = 1

	// maxQuantity is the largest magnitude a single slot may carry.
	maxQuantity = 1000
)

// ResolveQuantity converts one quantity token to a positive magnitude.
// Numeric tokens parse directly and number words resolve through the lexicon
// table. Anything else, including non-positive numbers and numbers above
// maxQuantity, falls back to 1.
func ResolveQuantity(lex *lexicon.Lexicon, token string) int {
	n, ok := quantity(lex, token)
	if !ok {
		slog.Debug("quantity unresolvable, defaulting to 1", "token", token)
		return defaultQuantity
	}
	return n
}

// quantity resolves token to a magnitude in [1, maxQuantity].
func quantity(lex *lexicon.Lexicon, token string) (int, bool) {
	n, ok := lex.Number(token)
	if !ok || n <= 0 || n > maxQuantity {
		return 0, false
	}
	return n, true
}

// ResolveQuantities assigns one quantity to each of slots positions by index
// into tokens: slot 0 is the base item, then add-ons, sweeteners and milk in
// that order. Slots beyond len(tokens) default to 1. For [Modification] every
// magnitude is negated so the quantity encodes "remove N".
func ResolveQuantities(lex *lexicon.Lexicon, tokens []string, slots int, action CartAction) []int {
	if slots <= 0 {
		return []int{}
	}
	out := make([]int, slots)
	for i := range out {
		q := defaultQuantity
		if i < len(tokens) {
			q = ResolveQuantity(lex, tokens[i])
		}
		if action == Modification {
			q = -q
		}
		out[i] = q
	}
	return out
}

// CorrectQuantities re-derives quantities directly from catalog membership
// instead of extraction-slot order.
//
// utterance is re-tokenised with every lexicon term as a split boundary and
// duplicate tokens are dropped. For each token that is one of known (matched
// verbatim or by its canonical lexicon term), the immediately preceding token
// is its quantity candidate; the first token is its own candidate. Candidates
// that do not resolve to a quantity in [1, maxQuantity] become "1". One string
// is returned per known-term occurrence, in utterance order.
func CorrectQuantities(lex *lexicon.Lexicon, known []string, utterance string) []string {
	knownSet := make(map[string]struct{}, len(known))
	for _, k := range known {
		knownSet[k] = struct{}{}
	}

	tokens := dedupeTokens(lex.Split(utterance))

	var out []string
	for i, tok := range tokens {
		if !isKnown(lex, knownSet, tok) {
			continue
		}
		candidate := tok
		if i > 0 {
			candidate = tokens[i-1]
		}
		if n, ok := quantity(lex, candidate); ok {
			out = append(out, strconv.Itoa(n))
			continue
		}
		out = append(out, strconv.Itoa(defaultQuantity))
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func isKnown(lex *lexicon.Lexicon, known map[string]struct{}, tok string) bool {
	if _, ok := known[tok]; ok {
		return true
	}
	if _, canonical, ok := lex.Lookup(tok); ok {
		_, ok := known[canonical]
		return ok
	}
	return false
}

func dedupeTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
