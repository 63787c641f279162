package parse

import (
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/lexicon"
)

// Extraction maps every lexicon category to the ordered surface matches found
// in one segment. Every category in [lexicon.Categories] is present; absent
// categories map to an empty, non-nil slice.
type Extraction map[lexicon.Category][]string

// Extract scans segment against every category of lex independently. A token
// may appear under more than one category when the vocabularies overlap
// ("vanilla" is both a flavor and an add-on).
func Extract(lex *lexicon.Lexicon, segment string) Extraction {
	ext := make(Extraction, len(lexicon.Categories))
	for _, c := range lexicon.Categories {
		ext[c] = lex.FindAll(c, segment)
	}
	return ext
}

// First returns the first match for c, if any.
func (e Extraction) First(c lexicon.Category) (string, bool) {
	if m := e[c]; len(m) > 0 {
		return m[0], true
	}
	return "", false
}

// Has reports whether c has at least one match.
func (e Extraction) Has(c lexicon.Category) bool {
	return len(e[c]) > 0
}
