// Package parser normalises raw query text into the two views the search
// pipeline needs: surface words for correction and judging, and index terms
// for ranking.
package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/indexer/tokenizer"
)

type Query struct {
	Raw string
	// Words is the lower-cased whitespace split of Raw.
	Words []string
	// Terms is the tokenizer output for Raw.
	Terms []string
}

// Parse never fails; a blank query yields empty Words and Terms.
func Parse(raw string, tok tokenizer.Tokenizer) Query {
	q := Query{
		Raw:   raw,
		Words: make([]string, 0),
		Terms: make([]string, 0),
	}
	if q.IsBlank() {
		return q
	}
	q.Words = strings.Fields(strings.ToLower(raw))
	q.Terms = tok.Terms(raw)
	return q
}

// IsBlank reports whether Raw has no visible characters.
func (q Query) IsBlank() bool {
	return strings.TrimSpace(q.Raw) == ""
}

// Normalized is Words joined by single spaces. It keys caches and logs so
// that case and spacing variants of a query collapse together.
func (q Query) Normalized() string {
	return strings.Join(q.Words, " ")
}

// DistinctTerms returns Terms with duplicates removed, first occurrence
// order kept.
func (q Query) DistinctTerms() []string {
	return Distinct(q.Terms)
}

// Distinct removes repeated entries, keeping first occurrences in order.
func Distinct(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
