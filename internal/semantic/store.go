package semantic

import (
	"context"
	"fmt"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/searcher/merger"
)

// Match is one nearest-neighbour hit.
type Match struct {
	DocID      int     `json:"doc_id"`
	Similarity float64 `json:"similarity"`
}

// BetterMatch orders by similarity descending, then DocID ascending.
func BetterMatch(a, b Match) bool {
	if a.Similarity != b.Similarity {
		return a.Similarity > b.Similarity
	}
	return a.DocID < b.DocID
}

// VectorStore holds the corpus embedding table.
type VectorStore interface {
	Add(ids []int, vecs [][]float32) error
	// Search returns up to k matches ordered by BetterMatch. A zero query
	// vector matches nothing.
	Search(ctx context.Context, vec []float32, k int) ([]Match, error)
	Len() int
}

// DimensionMismatchError is returned when a vector's length differs from
// the store's.
type DimensionMismatchError struct {
	Expected int
	Got      int
}

func (e DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// FlatStore scans every vector. Exact, and fast enough for corpora of a few
// tens of thousands of documents.
type FlatStore struct {
	mu   sync.RWMutex
	dims int
	ids  []int
	vecs [][]float32
}

func NewFlatStore(dims int) *FlatStore {
	return &FlatStore{dims: dims}
}

func (s *FlatStore) Add(ids []int, vecs [][]float32) error {
	if len(ids) != len(vecs) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vecs))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vecs {
		if len(v) != s.dims {
			return DimensionMismatchError{Expected: s.dims, Got: len(v)}
		}
	}
	for i, v := range vecs {
		cp := make([]float32, len(v))
		copy(cp, v)
		normalize(cp)
		s.ids = append(s.ids, ids[i])
		s.vecs = append(s.vecs, cp)
	}
	return nil
}

func (s *FlatStore) Search(ctx context.Context, vec []float32, k int) ([]Match, error) {
	if len(vec) != s.dims {
		return nil, DimensionMismatchError{Expected: s.dims, Got: len(vec)}
	}
	q := make([]float32, len(vec))
	copy(q, vec)
	if normalize(q) == 0 || k <= 0 {
		return []Match{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := make([]Match, len(s.vecs))
	for i, v := range s.vecs {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		matches[i] = Match{DocID: s.ids[i], Similarity: dot(q, v)}
	}
	return merger.TopK(matches, k, BetterMatch), nil
}

func (s *FlatStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}
