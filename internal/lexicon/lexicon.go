// Package lexicon holds the categorised menu vocabulary used to recognise
// items, modifiers and quantities in spoken-order transcriptions.
//
// A [Lexicon] compiles one case-insensitive, word-boundary matcher per
// [Category] at construction time. After construction it is read-only and
// safe for concurrent use by any number of goroutines; [Default] returns a
// process-wide instance built from [DefaultVocabulary] and [DefaultNumbers].
package lexicon

import (
	"cmp"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// pluralSuffix is appended to every non-quantity alternation so that
// "coffees", "donuts" and "sandwiches" match their singular terms.
const pluralSuffix = `(?:es|s)?`

// Lexicon is a compiled, immutable set of category matchers plus the
// word→integer table used for quantity resolution.
type Lexicon struct {
	vocab    Vocabulary
	terms    map[Category]map[string]struct{}
	numbers  map[string]int
	matchers map[Category]*regexp.Regexp
	prefixes map[Category]*regexp.Regexp
	union    *regexp.Regexp
}

var (
	defaultLexicon     *Lexicon
	defaultLexiconOnce sync.Once
)

// Default returns the process-wide [Lexicon] built from [DefaultVocabulary]
// and [DefaultNumbers]. It panics if the built-in vocabulary fails to compile,
// which indicates a programming error.
func Default() *Lexicon {
	defaultLexiconOnce.Do(func() {
		var err error
		defaultLexicon, err = New(DefaultVocabulary(), DefaultNumbers())
		if err != nil {
			panic("lexicon: compile default vocabulary: " + err.Error())
		}
	})
	return defaultLexicon
}

// New compiles vocab and numbers into a [Lexicon]. Any [Quantity] entry in
// vocab is ignored; the quantity matcher is derived from numbers plus a
// numeric-literal pattern.
func New(vocab Vocabulary, numbers map[string]int) (*Lexicon, error) {
	l := &Lexicon{
		vocab:    make(Vocabulary, len(Categories)),
		terms:    make(map[Category]map[string]struct{}, len(Categories)),
		numbers:  make(map[string]int, len(numbers)),
		matchers: make(map[Category]*regexp.Regexp, len(Categories)),
		prefixes: make(map[Category]*regexp.Regexp, len(Categories)),
	}
	for w, n := range numbers {
		l.numbers[normalize(w)] = n
	}

	var all []string
	for _, c := range Categories {
		var terms []string
		if c == Quantity {
			terms = slices.Collect(maps.Keys(l.numbers))
		} else {
			for _, t := range vocab[c] {
				if t = normalize(t); t != "" {
					terms = append(terms, t)
				}
			}
		}
		terms = dedupe(terms)
		l.vocab[c] = terms
		set := make(map[string]struct{}, len(terms))
		for _, t := range terms {
			set[t] = struct{}{}
		}
		l.terms[c] = set
		all = append(all, terms...)

		alt := alternation(terms)
		suffix := pluralSuffix
		if c == Quantity {
			alt = joinAlt(`\d+`, alt)
			suffix = ""
		}
		if alt == "" {
			// No matcher: an empty alternation would match everywhere.
			continue
		}
		m, err := regexp.Compile(`(?i)\b(?:` + alt + `)` + suffix + `\b`)
		if err != nil {
			return nil, fmt.Errorf("lexicon: compile %s matcher: %w", c, err)
		}
		m.Longest()
		l.matchers[c] = m

		p, err := regexp.Compile(`(?i)^(?:` + alt + `)` + suffix + `\b`)
		if err != nil {
			return nil, fmt.Errorf("lexicon: compile %s prefix matcher: %w", c, err)
		}
		p.Longest()
		l.prefixes[c] = p
	}

	u, err := regexp.Compile(`(?i)\b(?:` + joinAlt(`\d+`, alternation(dedupe(all))) + `)` + pluralSuffix + `\b`)
	if err != nil {
		return nil, fmt.Errorf("lexicon: compile union matcher: %w", err)
	}
	u.Longest()
	l.union = u

	return l, nil
}

// Terms returns the normalised terms of category c. The returned slice must
// not be modified.
func (l *Lexicon) Terms(c Category) []string {
	return l.vocab[c]
}

// FindAll returns every non-overlapping match of category c in s, in
// left-to-right order. The result is never nil.
func (l *Lexicon) FindAll(c Category, s string) []string {
	m, ok := l.matchers[c]
	if !ok {
		return []string{}
	}
	found := m.FindAllString(s, -1)
	out := make([]string, 0, len(found))
	for _, f := range found {
		out = append(out, normalize(f))
	}
	return out
}

// HasPrefix reports whether s begins with a term of category c and returns
// the matched text.
func (l *Lexicon) HasPrefix(c Category, s string) (string, bool) {
	p, ok := l.prefixes[c]
	if !ok {
		return "", false
	}
	m := p.FindString(s)
	return m, m != ""
}

// Canonical maps a raw match of category c to its vocabulary term, stripping
// a plural suffix when needed. Unknown input is returned normalised.
func (l *Lexicon) Canonical(c Category, raw string) string {
	r := normalize(raw)
	set := l.terms[c]
	if _, ok := set[r]; ok {
		return r
	}
	for _, suffix := range []string{"es", "s"} {
		if t, ok := strings.CutSuffix(r, suffix); ok {
			if _, known := set[t]; known {
				return t
			}
		}
	}
	return r
}

// Lookup resolves raw against the item and modifier categories, returning the
// first category that knows it and its canonical term.
func (l *Lexicon) Lookup(raw string) (Category, string, bool) {
	for _, c := range Categories {
		if c == Quantity || c == Allergy {
			continue
		}
		t := l.Canonical(c, raw)
		if _, ok := l.terms[c][t]; ok {
			return c, t, true
		}
	}
	return "", "", false
}

// Number resolves a quantity token. Numeric literals parse directly; words are
// looked up in the number table. ok is false when neither applies.
func (l *Lexicon) Number(token string) (n int, ok bool) {
	t := normalize(token)
	if t == "" {
		return 0, false
	}
	if v, err := strconv.Atoi(t); err == nil {
		return v, true
	}
	v, ok := l.numbers[t]
	return v, ok
}

// Numbers returns a copy of the word→integer table.
func (l *Lexicon) Numbers() map[string]int {
	return maps.Clone(l.numbers)
}

// Split tokenises s by treating every lexicon term (and every numeric
// literal) as a split boundary. Matched terms are kept as tokens alongside the
// text between them; the pieces are returned in order, trimmed, and with
// empty pieces dropped.
func (l *Lexicon) Split(s string) []string {
	var out []string
	emit := func(piece string) {
		if p := strings.TrimSpace(piece); p != "" {
			out = append(out, p)
		}
	}
	last := 0
	for _, loc := range l.union.FindAllStringIndex(s, -1) {
		emit(s[last:loc[0]])
		emit(s[loc[0]:loc[1]])
		last = loc[1]
	}
	emit(s[last:])
	return out
}

// PhraseSpans returns the byte ranges of every multi-word lexicon term found
// in s. Connector words that fall inside one of these spans (the "and" in
// "half and half") belong to the term.
func (l *Lexicon) PhraseSpans(s string) [][2]int {
	var spans [][2]int
	for _, loc := range l.union.FindAllStringIndex(s, -1) {
		if strings.ContainsAny(s[loc[0]:loc[1]], " \t") {
			spans = append(spans, [2]int{loc[0], loc[1]})
		}
	}
	return spans
}

// alternation builds a regexp alternation of terms, longest first, with
// internal whitespace relaxed to any run of spaces.
func alternation(terms []string) string {
	sorted := slices.Clone(terms)
	slices.SortFunc(sorted, func(a, b string) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	parts := make([]string, 0, len(sorted))
	for _, t := range sorted {
		words := strings.Fields(t)
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		parts = append(parts, strings.Join(words, `\s+`))
	}
	return strings.Join(parts, "|")
}

func joinAlt(a, b string) string {
	if b == "" {
		return a
	}
	return a + "|" + b
}

// normalize lower-cases s and collapses internal whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
