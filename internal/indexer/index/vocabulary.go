package index

import "sort"

// Vocabulary is an immutable set of known words with a sorted listing.
type Vocabulary struct {
	set    map[string]struct{}
	sorted []string
}

// NewVocabulary collects the distinct words of every sequence.
func NewVocabulary(seqs [][]string) *Vocabulary {
	set := make(map[string]struct{})
	for _, seq := range seqs {
		for _, w := range seq {
			set[w] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(set))
	for w := range set {
		sorted = append(sorted, w)
	}
	sort.Strings(sorted)
	return &Vocabulary{set: set, sorted: sorted}
}

func (v *Vocabulary) Contains(word string) bool {
	_, ok := v.set[word]
	return ok
}

// Terms returns the words in ascending order. Callers must not modify the
// slice.
func (v *Vocabulary) Terms() []string {
	return v.sorted
}

func (v *Vocabulary) Len() int {
	return len(v.sorted)
}
