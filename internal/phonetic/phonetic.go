// Package phonetic resolves loosely transcribed names against a fixed list of
// known names using Double Metaphone phonetic encoding combined with
// Jaro-Winkler string similarity.
//
// The algorithm proceeds in two stages:
//
//  1. Phonetic candidate filtering: Double Metaphone codes are computed for
//     each word of the query and, once at index construction, for each known
//     name. A name whose codes overlap the query's becomes a phonetic
//     candidate.
//
//  2. Jaro-Winkler ranking: among phonetic candidates the name with the
//     highest similarity is selected, provided its score reaches the phonetic
//     threshold. When no phonetic candidate qualifies, a secondary pass
//     accepts the best pure string match above a stricter fuzzy threshold.
//
// Ties keep the name that appears first in the index, so results are
// deterministic for a given name list.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// Option is a functional option for configuring an [Index].
type Option func(*Index)

// WithPhoneticThreshold sets the minimum similarity required for a
// phonetically-matched name to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(ix *Index) {
		ix.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum similarity required when no phonetic
// candidate qualifies. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(ix *Index) {
		ix.fuzzyThreshold = threshold
	}
}

// Match is the outcome of a successful [Index.Match].
type Match struct {
	// Name is the known name exactly as it was passed to [NewIndex].
	Name string

	// Score is the similarity in [0, 1].
	Score float64

	// Phonetic reports whether the match passed the phonetic filter (as
	// opposed to the pure string-similarity fallback).
	Phonetic bool
}

type entry struct {
	name   string
	lower  string
	tokens []string
	codes  map[string]struct{}
}

// Index is an immutable set of known names with precomputed phonetic codes.
// It is safe for concurrent use.
type Index struct {
	entries           []entry
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// NewIndex builds an [Index] over names. Blank names are skipped.
func NewIndex(names []string, opts ...Option) *Index {
	ix := &Index{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(ix)
	}
	for _, n := range names {
		lower := strings.ToLower(strings.TrimSpace(n))
		if lower == "" {
			continue
		}
		tokens := strings.Fields(lower)
		ix.entries = append(ix.entries, entry{
			name:   n,
			lower:  lower,
			tokens: tokens,
			codes:  codesForTokens(tokens),
		})
	}
	return ix
}

// Len returns the number of indexed names.
func (ix *Index) Len() int { return len(ix.entries) }

// Match returns the indexed name most similar to query. An exact
// case-insensitive hit scores 1 and short-circuits ranking.
func (ix *Index) Match(query string) (Match, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || len(ix.entries) == 0 {
		return Match{}, false
	}
	for _, e := range ix.entries {
		if e.lower == q {
			return Match{Name: e.name, Score: 1, Phonetic: true}, true
		}
	}

	qTokens := strings.Fields(q)
	qCodes := codesForTokens(qTokens)

	var best Match
	for _, e := range ix.entries {
		score := similarity(qTokens, e.tokens, q, e.lower)
		if codesOverlap(qCodes, e.codes) {
			if score >= ix.phoneticThreshold && (!best.Phonetic || score > best.Score) {
				best = Match{Name: e.name, Score: score, Phonetic: true}
			}
			continue
		}
		if !best.Phonetic && score >= ix.fuzzyThreshold && score > best.Score {
			best = Match{Name: e.name, Score: score}
		}
	}
	return best, best.Name != ""
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes (too short, or no consonants) are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// similarity is the best of three Jaro-Winkler strategies:
//
//  1. Full-string comparison ("glazed donuts" vs "glazed donut").
//  2. Space-stripped comparison ("ice coffee" vs "iced coffee").
//  3. Two-sided token coverage: the mean best-token score from each side,
//     averaged. Sharing one word with a longer name is not enough to win.
func similarity(qTokens, eTokens []string, q, e string) float64 {
	score := matchr.JaroWinkler(q, e, false)

	if len(qTokens) > 1 || len(eTokens) > 1 {
		if s := matchr.JaroWinkler(strings.Join(qTokens, ""), strings.Join(eTokens, ""), false); s > score {
			score = s
		}
	}

	if s := (coverage(qTokens, eTokens) + coverage(eTokens, qTokens)) / 2; s > score {
		score = s
	}
	return score
}

// coverage is the mean, over a, of each token's best score against b.
func coverage(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var total float64
	for _, x := range a {
		var best float64
		for _, y := range b {
			if s := matchr.JaroWinkler(x, y, false); s > best {
				best = s
			}
		}
		total += best
	}
	return total / float64(len(a))
}
