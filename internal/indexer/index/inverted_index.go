// Package index holds the immutable inverted index the BM25 ranker scores
// against. An InvertedIndex is built once from the full corpus and never
// mutated, so any number of readers may share it without locking.
package index

import (
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/errors"
)

type InvertedIndex struct {
	postings     map[string]PostingList
	docLength    []int
	avgDocLength float64
	vocab        *Vocabulary
}

// Build indexes termSeqs, where termSeqs[i] is the term sequence of the
// document with ID i. It returns ErrEmptyCorpus for zero documents.
func Build(termSeqs [][]string) (*InvertedIndex, error) {
	n := len(termSeqs)
	if n == 0 {
		return nil, apperrors.ErrEmptyCorpus
	}
	idx := &InvertedIndex{
		postings:  make(map[string]PostingList),
		docLength: make([]int, n),
	}
	total := 0
	for docID, terms := range termSeqs {
		counts := make(map[string]int, len(terms))
		for _, t := range terms {
			counts[t]++
		}
		// docIDs are visited in ascending order, so appends keep every
		// posting list sorted.
		for term, tf := range counts {
			idx.postings[term] = append(idx.postings[term], Posting{DocID: docID, Frequency: tf})
		}
		idx.docLength[docID] = len(terms)
		total += len(terms)
	}
	idx.avgDocLength = float64(total) / float64(n)

	terms := make([]string, 0, len(idx.postings))
	set := make(map[string]struct{}, len(idx.postings))
	for term := range idx.postings {
		terms = append(terms, term)
		set[term] = struct{}{}
	}
	sort.Strings(terms)
	idx.vocab = &Vocabulary{set: set, sorted: terms}
	return idx, nil
}

// DocCount is N.
func (idx *InvertedIndex) DocCount() int {
	return len(idx.docLength)
}

// DocLength returns the term count of docID, or 0 when out of range.
func (idx *InvertedIndex) DocLength(docID int) int {
	if docID < 0 || docID >= len(idx.docLength) {
		return 0
	}
	return idx.docLength[docID]
}

// AvgDocLength is the mean term count over the corpus. It is 0 only when
// every document tokenized to nothing.
func (idx *InvertedIndex) AvgDocLength() float64 {
	return idx.avgDocLength
}

// DocFreq is the number of documents containing term at least once.
func (idx *InvertedIndex) DocFreq(term string) int {
	return len(idx.postings[term])
}

// Postings returns the posting list of term, or nil for unknown terms.
// Callers must not modify it.
func (idx *InvertedIndex) Postings(term string) PostingList {
	return idx.postings[term]
}

// TermFreq returns the frequency of term in docID.
func (idx *InvertedIndex) TermFreq(term string, docID int) int {
	pl := idx.postings[term]
	i := sort.Search(len(pl), func(i int) bool { return pl[i].DocID >= docID })
	if i < len(pl) && pl[i].DocID == docID {
		return pl[i].Frequency
	}
	return 0
}

// Contains reports whether term occurs in any document.
func (idx *InvertedIndex) Contains(term string) bool {
	return idx.vocab.Contains(term)
}

// Terms returns the indexed terms in ascending order.
func (idx *InvertedIndex) Terms() []string {
	return idx.vocab.Terms()
}

// Vocabulary returns the indexed term set.
func (idx *InvertedIndex) Vocabulary() *Vocabulary {
	return idx.vocab
}

// Snapshot lists every term with its postings in term order.
func (idx *InvertedIndex) Snapshot() []TermEntry {
	terms := idx.vocab.Terms()
	entries := make([]TermEntry, len(terms))
	for i, term := range terms {
		entries[i] = TermEntry{Term: term, Postings: idx.postings[term]}
	}
	return entries
}
