package evaluation

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/corpus"
)

// QueryWords is the judge's view of a query: lower-cased whitespace words.
func QueryWords(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// IsRelevant reports whether any query word is one of the document terms.
func IsRelevant(queryWords []string, docTerms map[string]struct{}) bool {
	for _, w := range queryWords {
		if _, ok := docTerms[w]; ok {
			return true
		}
	}
	return false
}

// Judge answers relevance questions against a corpus. It indexes the uses
// terms once so counting all relevant documents for a query does not scan
// the corpus.
type Judge struct {
	corpus   *corpus.Corpus
	postings map[string][]int
}

func NewJudge(c *corpus.Corpus) *Judge {
	postings := make(map[string][]int)
	for id := 0; id < c.Len(); id++ {
		for term := range c.UsesSet(id) {
			postings[term] = append(postings[term], id)
		}
	}
	return &Judge{corpus: c, postings: postings}
}

// Labels returns binary relevance for the first k results. A repeated
// document is labelled only at its first rank, so relevant hits never
// outnumber TotalRelevant.
func (j *Judge) Labels(queryWords []string, results []int, k int) []int {
	n := max(0, min(k, len(results)))
	labels := make([]int, n)
	seen := make(map[int]struct{}, n)
	for i, id := range results[:n] {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if IsRelevant(queryWords, j.corpus.UsesSet(id)) {
			labels[i] = 1
		}
	}
	return labels
}

// TotalRelevant counts corpus documents sharing at least one uses term with
// the query.
func (j *Judge) TotalRelevant(queryWords []string) int {
	seen := make(map[int]struct{})
	for _, w := range queryWords {
		for _, id := range j.postings[w] {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}
