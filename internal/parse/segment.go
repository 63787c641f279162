// Package parse turns a spoken-order transcription into per-item segments and
// extracts the structured facts each segment carries: categorised lexicon
// matches, the customer's cart action, and the quantity for every slot of the
// eventual line item.
//
// Every function in this package is pure: results are built in local
// variables and returned, so concurrent calls from different segment workers
// share nothing but the read-only [lexicon.Lexicon].
package parse

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/lexicon"
)

// lookaheadTokens is how many significant tokens after a connector are
// inspected when deciding whether to split.
const lookaheadTokens = 3

var tokenPattern = regexp.MustCompile(`\S+`)

// connectors are the words that may separate two ordered items.
var connectors = map[string]struct{}{
	"plus": {}, "get": {}, "and": {}, "also": {},
}

// fillers carry no item or modifier meaning and are skipped by the lookahead,
// so "and a pump of caramel" is judged by "caramel".
var fillers = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "with": {}, "some": {}, "me": {},
	"extra": {}, "more": {}, "pump": {}, "pumps": {}, "shot": {}, "shots": {},
	"packet": {}, "packets": {}, "splash": {}, "dash": {}, "side": {},
}

// Segment splits transcription into one lower-cased, trimmed segment per
// ordered item, in utterance order. Each segment is a slice of the lower-cased
// input, so spacing inside a segment is preserved.
//
// A connector word ("plus", "get", "and", "also") ends the current segment
// only when the current segment already names an item and the next few
// significant tokens start a new item. When they start a modifier phrase
// ("and a pump of caramel") or nothing recognisable, the split is suppressed
// and the connector stays in the segment. Connectors inside a multi-word term
// ("half and half") are never treated as connectors.
func Segment(lex *lexicon.Lexicon, transcription string) []string {
	text := strings.ToLower(strings.TrimSpace(transcription))
	if text == "" {
		return nil
	}

	toks := tokenPattern.FindAllStringIndex(text, -1)
	phrases := lex.PhraseSpans(text)

	var (
		segments []string
		start    = -1
		end      int
		hasItem  bool
	)
	flush := func() {
		if start >= 0 {
			segments = append(segments, text[start:end])
		}
		start = -1
		hasItem = false
	}

	for i, span := range toks {
		tok := text[span[0]:span[1]]
		if isConnector(tok) && !insidePhrase(span, phrases) {
			if start < 0 {
				continue
			}
			if hasItem && startsItem(lex, text, toks, i) {
				flush()
				continue
			}
		}
		if start < 0 {
			start = span[0]
		}
		end = span[1]
		if !hasItem {
			hasItem = namesItem(lex, text[span[0]:])
		}
	}
	flush()

	return segments
}

// startsItem reports whether the tokens following the connector at index i
// open a new item. Fillers and quantity words are skipped; the first
// significant token that begins an item or modifier term decides, and a
// modifier term wins only when it is strictly longer than the item term.
func startsItem(lex *lexicon.Lexicon, text string, toks [][]int, i int) bool {
	seen := 0
	for j := i + 1; j < len(toks) && seen < lookaheadTokens; j++ {
		word := trimPunct(text[toks[j][0]:toks[j][1]])
		if _, ok := fillers[word]; ok {
			continue
		}
		if _, ok := connectors[word]; ok {
			continue
		}
		if _, ok := lex.Number(word); ok {
			continue
		}
		rest := text[toks[j][0]:]
		item := longestPrefix(lex, lexicon.ItemCategories, rest)
		modifier := longestPrefix(lex, lexicon.ModifierCategories, rest)
		if item > 0 || modifier > 0 {
			// "espresso shot" is an add-on even though "espresso" is a coffee.
			return item >= modifier
		}
		seen++
	}
	slog.Debug("segment split ambiguous, keeping connector",
		"connector", text[toks[i][0]:toks[i][1]],
		"offset", toks[i][0],
	)
	return false
}

// longestPrefix returns the length of the longest term of any of cats that s
// begins with, or 0.
func longestPrefix(lex *lexicon.Lexicon, cats []lexicon.Category, s string) int {
	n := 0
	for _, c := range cats {
		if m, ok := lex.HasPrefix(c, s); ok {
			n = max(n, len(m))
		}
	}
	return n
}

// namesItem reports whether s begins with an item term.
func namesItem(lex *lexicon.Lexicon, s string) bool {
	for _, c := range lexicon.ItemCategories {
		if _, ok := lex.HasPrefix(c, s); ok {
			return true
		}
	}
	return false
}

func isConnector(tok string) bool {
	_, ok := connectors[trimPunct(tok)]
	return ok
}

func insidePhrase(tok []int, phrases [][2]int) bool {
	for _, p := range phrases {
		if tok[0] >= p[0] && tok[1] <= p[1] {
			return true
		}
	}
	return false
}

func trimPunct(s string) string {
	return strings.Trim(s, `.,!?;:"'`)
}
