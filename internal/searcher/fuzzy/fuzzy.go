// Package fuzzy repairs out-of-vocabulary query words before the semantic
// fallback. Similarity is difflib's ratio 2*M/T over character sequences,
// the same measure and prefilters as Python's get_close_matches.
package fuzzy

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultCutoff is the minimum ratio for a substitution.
const DefaultCutoff = 0.8

// Vocabulary is the set of known words. *index.Vocabulary satisfies it.
type Vocabulary interface {
	Contains(word string) bool
	Terms() []string
}

type Corrector struct {
	cutoff float64
}

// New returns a Corrector. A cutoff outside (0, 1] falls back to
// DefaultCutoff.
func New(cutoff float64) *Corrector {
	if cutoff <= 0 || cutoff > 1 {
		cutoff = DefaultCutoff
	}
	return &Corrector{cutoff: cutoff}
}

func (c *Corrector) Cutoff() float64 {
	return c.cutoff
}

// Closest returns the vocabulary term most similar to word with ratio at
// least the cutoff. Equal ratios resolve to the lexicographically largest
// term, as get_close_matches does when it ranks (ratio, word) pairs.
func (c *Corrector) Closest(word string, vocab Vocabulary) (string, float64, bool) {
	wordChars := strings.Split(word, "")
	lw := len(wordChars)
	if lw == 0 {
		return "", 0, false
	}
	m := difflib.NewMatcher(nil, wordChars)
	best, bestRatio := "", 0.0
	for _, term := range vocab.Terms() {
		lt := len([]rune(term))
		// real_quick_ratio without allocating the candidate sequence.
		if lt+lw == 0 || 2*float64(min(lt, lw))/float64(lt+lw) < c.cutoff {
			continue
		}
		m.SetSeq1(strings.Split(term, ""))
		if m.QuickRatio() < c.cutoff {
			continue
		}
		ratio := m.Ratio()
		if ratio < c.cutoff {
			continue
		}
		if ratio > bestRatio || (ratio == bestRatio && term > best) {
			best, bestRatio = term, ratio
		}
	}
	if best == "" {
		return "", 0, false
	}
	return best, bestRatio, true
}

// Correct substitutes every word that is not in vocab with its closest
// match, keeping words with no match unchanged. Each word is handled
// independently of its neighbours.
func (c *Corrector) Correct(words []string, vocab Vocabulary) ([]string, bool) {
	out := make([]string, len(words))
	changed := false
	for i, w := range words {
		out[i] = w
		if vocab.Contains(w) {
			continue
		}
		if match, _, ok := c.Closest(w, vocab); ok && match != w {
			out[i] = match
			changed = true
		}
	}
	return out, changed
}

// CorrectText corrects the lower-cased words of raw and returns the
// rewritten query only when it differs from the normalised input.
func (c *Corrector) CorrectText(raw string, vocab Vocabulary) (string, bool) {
	words := strings.Fields(strings.ToLower(raw))
	corrected, changed := c.Correct(words, vocab)
	if !changed {
		return "", false
	}
	return strings.Join(corrected, " "), true
}
