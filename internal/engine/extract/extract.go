// Package extract turns raw synopsis text and documentation markup into
// normalised, stemmed terms for indexing and querying. The pipeline is
// tokenise → drop all-punctuation tokens → split compound tokens →
// case-fold → stop-word filter → English Snowball stem.
package extract

import (
	"strings"
	"unicode"

	snowballeng "github.com/kljensen/snowball/english"

	"github.com/mfeineis/elm-advanced-package-search/internal/engine/markup"
)

// Stopwords is a set of case-folded words excluded from indexing.
type Stopwords map[string]struct{}

// NewStopwords builds a stop-word set. The words must already be
// case-folded.
func NewStopwords(words ...string) Stopwords {
	s := make(Stopwords, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

// Contains reports whether w is a stop word.
func (s Stopwords) Contains(w string) bool {
	_, ok := s[w]
	return ok
}

// SynopsisTerms extracts terms from a short plain-text synopsis.
func SynopsisTerms(stop Stopwords, text string) []string {
	return normalize(stop, strings.Fields(text))
}

// DescriptionTerms lexes and parses text as documentation markup via parse
// and extracts terms from the resulting tree. Text that fails to parse
// yields no terms.
func DescriptionTerms(stop Stopwords, parse markup.ParseFunc, text string) []string {
	tree, err := parse(text)
	if err != nil {
		return nil
	}
	return normalize(stop, markup.Tokens(tree))
}

// QueryTerms extracts terms from a raw query string. Queries go through
// the synopsis pipeline so query terms normalise exactly like indexed
// terms.
func QueryTerms(stop Stopwords, query string) []string {
	return SynopsisTerms(stop, query)
}

// splitRune reports whether r is one of the characters compound tokens are
// split on.
func splitRune(r rune) bool {
	return r == ')' || r == '-' || r == '/'
}

// normalize runs the shared tail of the pipeline over word-like tokens.
func normalize(stop Stopwords, tokens []string) []string {
	out := make([]string, 0, len(tokens))
	emit := func(fragment string) {
		folded := strings.ToLower(fragment)
		if stop.Contains(folded) {
			return
		}
		out = append(out, snowballeng.Stem(folded, false))
	}
	for _, tok := range tokens {
		if allPunctuation(tok) {
			continue
		}
		pieces := strings.FieldsFunc(tok, splitRune)
		if splitCount(tok) >= 2 {
			// A compound token contributes both the whole and its
			// non-empty fragments.
			emit(tok)
			for _, p := range pieces {
				emit(p)
			}
		} else {
			emit(tok)
		}
	}
	return out
}

// splitCount returns how many pieces the raw split produces, counting
// empty fragments. A count of one means the token had no split character.
func splitCount(tok string) int {
	n := 1
	for _, r := range tok {
		if splitRune(r) {
			n++
		}
	}
	return n
}

// allPunctuation reports whether the token carries no letter or digit.
func allPunctuation(tok string) bool {
	for _, r := range tok {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
