package semantic

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWConfig tunes the approximate index.
type HNSWConfig struct {
	M        int
	EfSearch int
}

// HNSWStore is an approximate nearest-neighbour store on coder/hnsw.
// Vectors are normalised on insert so cosine distance reduces to the dot
// product. Zero vectors are not inserted since they have no direction.
type HNSWStore struct {
	mu    sync.RWMutex
	dims  int
	graph *hnsw.Graph[int]
}

func NewHNSWStore(dims int, cfg HNSWConfig) *HNSWStore {
	if cfg.M <= 0 {
		cfg.M = 16
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = 64
	}
	g := hnsw.NewGraph[int]()
	g.Distance = hnsw.CosineDistance
	g.M = cfg.M
	g.EfSearch = cfg.EfSearch
	g.Ml = 0.25
	return &HNSWStore{dims: dims, graph: g}
}

func (s *HNSWStore) Add(ids []int, vecs [][]float32) error {
	if len(ids) != len(vecs) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vecs))
	}
	for _, v := range vecs {
		if len(v) != s.dims {
			return DimensionMismatchError{Expected: s.dims, Got: len(v)}
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range vecs {
		cp := make([]float32, len(v))
		copy(cp, v)
		if normalize(cp) == 0 {
			continue
		}
		s.graph.Add(hnsw.MakeNode(ids[i], cp))
	}
	return nil
}

func (s *HNSWStore) Search(ctx context.Context, vec []float32, k int) ([]Match, error) {
	if len(vec) != s.dims {
		return nil, DimensionMismatchError{Expected: s.dims, Got: len(vec)}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := make([]float32, len(vec))
	copy(q, vec)
	if normalize(q) == 0 || k <= 0 {
		return []Match{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.graph.Len() == 0 {
		return []Match{}, nil
	}
	nodes := s.graph.Search(q, k)
	matches := make([]Match, 0, len(nodes))
	for _, n := range nodes {
		matches = append(matches, Match{DocID: n.Key, Similarity: dot(q, n.Value)})
	}
	sort.Slice(matches, func(i, j int) bool { return BetterMatch(matches[i], matches[j]) })
	return matches, nil
}

func (s *HNSWStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.Len()
}
