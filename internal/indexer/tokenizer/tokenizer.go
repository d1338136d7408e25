// Package tokenizer turns document and query text into index terms. The
// Standard tokenizer lower-cases, splits on non-alphanumeric boundaries,
// drops stop-words and applies a suffix stemmer; Whitespace only lower-cases
// and splits, for text that was normalised upstream.
package tokenizer

import (
	"fmt"
	"strings"
	"unicode"
)

// Tokenizer produces the ordered term sequence of a text. Documents and
// queries must go through the same Tokenizer.
type Tokenizer interface {
	Terms(text string) []string
	Name() string
}

// New returns the tokenizer registered under name.
func New(name string) (Tokenizer, error) {
	switch name {
	case "", "standard":
		return Standard{}, nil
	case "whitespace":
		return Whitespace{}, nil
	default:
		return nil, fmt.Errorf("unknown tokenizer %q", name)
	}
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
	"used": {}, "use": {}, "treatment": {}, "medicine": {},
}

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// Standard is the default tokenizer.
type Standard struct{}

func (Standard) Name() string { return "standard" }

// Terms returns the term sequence produced by Tokenize.
func (s Standard) Terms(text string) []string {
	tokens := s.Tokenize(text)
	terms := make([]string, len(tokens))
	for i, t := range tokens {
		terms[i] = t.Term
	}
	return terms
}

// Tokenize breaks text into stemmed, lowercased Tokens with stop-words
// removed.
func (Standard) Tokenize(text string) []Token {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]Token, 0, len(words))
	pos := 0
	for _, word := range words {
		if len(word) < 2 {
			continue
		}
		if _, isStop := stopWords[word]; isStop {
			continue
		}
		stemmed := Stem(word)
		if stemmed == "" {
			continue
		}
		tokens = append(tokens, Token{
			Term:     stemmed,
			Position: pos,
		})
		pos++
	}
	return tokens
}

// Whitespace lower-cases and splits on whitespace without further
// normalisation.
type Whitespace struct{}

func (Whitespace) Name() string { return "whitespace" }

func (Whitespace) Terms(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

var suffixRules = []struct {
	suffix      string
	replacement string
	minLen      int
}{
	{"ational", "ate", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"iness", "y", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"eness", "ene", 2},
	{"tion", "t", 3},
	{"sion", "s", 3},
	{"ying", "y", 2},
	{"ling", "l", 3},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"est", "", 3},
	{"ful", "", 3},
	{"ous", "", 3},
	{"ess", "", 3},
	{"ble", "", 3},
	{"ed", "", 3},
	{"er", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
}

// Stem applies the first matching suffix rule whose result keeps at least
// minLen characters.
func Stem(word string) string {
	for _, rule := range suffixRules {
		if strings.HasSuffix(word, rule.suffix) {
			newWord := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(newWord) >= rule.minLen {
				return newWord
			}
		}
	}
	return word
}
