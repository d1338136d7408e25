// Package ranker implements BM25 over an immutable inverted index. Fit
// builds a complete new index and swaps it in atomically, so concurrent
// searches always see one consistent snapshot.
package ranker

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/searcher/parser"
)

// Params are the BM25 constants. K1 controls term-frequency saturation and
// B the strength of length normalisation.
type Params struct {
	K1 float64
	B  float64
}

func DefaultParams() Params {
	return Params{K1: 1.5, B: 0.75}
}

type ScoredDoc struct {
	DocID int     `json:"doc_id"`
	Score float64 `json:"score"`
}

// Better orders by score descending, then DocID ascending.
func Better(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

// Snapshot is one fitted generation of the ranker.
type Snapshot struct {
	Index *index.InvertedIndex
	// Surface is the vocabulary of raw lower-cased document words, the
	// dictionary the fuzzy corrector matches user words against.
	Surface    *index.Vocabulary
	Generation uint64
	BuiltAt    time.Time
}

type Ranker struct {
	tok     tokenizer.Tokenizer
	params  Params
	current atomic.Pointer[Snapshot]
	gen     atomic.Uint64
	fitMu   sync.Mutex
	logger  *slog.Logger
}

func New(tok tokenizer.Tokenizer, params Params) *Ranker {
	return &Ranker{
		tok:    tok,
		params: params,
		logger: slog.Default().With("component", "ranker"),
	}
}

// Fit indexes docs and publishes the result. On error the previously
// published snapshot stays in place.
func (r *Ranker) Fit(docs []corpus.Document) error {
	snap, err := r.Prepare(docs)
	if err != nil {
		return err
	}
	r.Publish(snap)
	return nil
}

// Prepare indexes docs without publishing. The snapshot has generation 0
// until it is passed to Publish.
func (r *Ranker) Prepare(docs []corpus.Document) (*Snapshot, error) {
	start := time.Now()
	termSeqs := make([][]string, len(docs))
	words := make([][]string, len(docs))
	for i, d := range docs {
		termSeqs[i] = r.tok.Terms(d.Text)
		words[i] = strings.Fields(strings.ToLower(d.Text))
	}
	idx, err := index.Build(termSeqs)
	if err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}
	r.logger.Info("index built",
		"documents", idx.DocCount(),
		"terms", len(idx.Terms()),
		"avg_doc_length", idx.AvgDocLength(),
		"duration", time.Since(start),
	)
	return &Snapshot{
		Index:   idx,
		Surface: index.NewVocabulary(words),
		BuiltAt: time.Now(),
	}, nil
}

// Publish stamps snap with the next generation and makes it current.
// A snapshot must be published at most once.
func (r *Ranker) Publish(snap *Snapshot) uint64 {
	r.fitMu.Lock()
	defer r.fitMu.Unlock()
	snap.Generation = r.gen.Add(1)
	r.current.Store(snap)
	r.logger.Info("index published", "generation", snap.Generation, "documents", snap.Index.DocCount())
	return snap.Generation
}

// Snapshot returns the published snapshot, or nil before the first Fit.
func (r *Ranker) Snapshot() *Snapshot {
	return r.current.Load()
}

// Generation returns the published generation, 0 before the first Fit.
func (r *Ranker) Generation() uint64 {
	if s := r.current.Load(); s != nil {
		return s.Generation
	}
	return 0
}

func (r *Ranker) Tokenizer() tokenizer.Tokenizer {
	return r.tok
}

func (r *Ranker) Params() Params {
	return r.params
}

// Score computes the BM25 score of docID for the distinct terms of terms.
func (r *Ranker) Score(terms []string, docID int) float64 {
	snap := r.current.Load()
	if snap == nil {
		return 0
	}
	idx := snap.Index
	if docID < 0 || docID >= idx.DocCount() {
		return 0
	}
	var score float64
	for _, term := range parser.Distinct(terms) {
		tf := idx.TermFreq(term, docID)
		if tf == 0 {
			continue
		}
		score += r.contribution(idx, idx.DocFreq(term), tf, idx.DocLength(docID))
	}
	return score
}

// Search returns up to topK documents touched by at least one query term,
// best first. topK <= 0 returns every match. Unknown terms are ignored.
func (r *Ranker) Search(terms []string, topK int) []ScoredDoc {
	return r.SearchIn(r.current.Load(), terms, topK)
}

// SearchIn is Search against a specific snapshot, which lets a caller keep
// one generation for the whole request. A nil snapshot matches nothing.
func (r *Ranker) SearchIn(snap *Snapshot, terms []string, topK int) []ScoredDoc {
	if snap == nil || len(terms) == 0 {
		return []ScoredDoc{}
	}
	idx := snap.Index
	scores := make(map[int]float64)
	for _, term := range parser.Distinct(terms) {
		postings := idx.Postings(term)
		if len(postings) == 0 {
			continue
		}
		df := len(postings)
		for _, p := range postings {
			scores[p.DocID] += r.contribution(idx, df, p.Frequency, idx.DocLength(p.DocID))
		}
	}
	candidates := make([]ScoredDoc, 0, len(scores))
	for docID, score := range scores {
		candidates = append(candidates, ScoredDoc{DocID: docID, Score: score})
	}
	return merger.TopK(candidates, topK, Better)
}

func (r *Ranker) contribution(idx *index.InvertedIndex, df, tf, docLen int) float64 {
	return IDF(idx.DocCount(), df) * TFNorm(float64(tf), float64(docLen), idx.AvgDocLength(), r.params)
}

// IDF is ln((N - df + 0.5) / (df + 0.5) + 1), non-negative for df <= N.
func IDF(totalDocs, docFreq int) float64 {
	numerator := float64(totalDocs) - float64(docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

// TFNorm is the saturated, length-normalised term frequency.
func TFNorm(termFreq, docLength, avgDocLength float64, p Params) float64 {
	if termFreq <= 0 {
		return 0
	}
	lengthRatio := 1.0
	if avgDocLength > 0 {
		lengthRatio = docLength / avgDocLength
	}
	denominator := termFreq + p.K1*(1-p.B+p.B*lengthRatio)
	return (termFreq * (p.K1 + 1)) / denominator
}
