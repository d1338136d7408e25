// Package fusion decides between lexical, semantic and blended retrieval.
//
// In fallback mode BM25 answers whenever it has a result above the minimum
// score; otherwise the query is spell-corrected against the corpus
// vocabulary and handed to the semantic retriever, whose list is returned
// unmodified. In hybrid mode both channels are min-max normalised and
// blended with weight alpha. The semantic channel is optional: when it is
// missing, failing, slow or tripped, results degrade to lexical-only and
// the response says so.
package fusion

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/searcher/fuzzy"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/semantic"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/tracing"
)

// Provenance names the channel that produced a result list.
type Provenance string

const (
	ProvenanceLexical  Provenance = "lexical"
	ProvenanceSemantic Provenance = "semantic"
	ProvenanceHybrid   Provenance = "hybrid"
)

type Mode string

const (
	ModeFallback Mode = "fallback"
	ModeHybrid   Mode = "hybrid"
)

// Retriever is the semantic channel. *semantic.Retriever satisfies it.
type Retriever interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Nearest(ctx context.Context, vec []float32, k int) ([]semantic.Match, error)
}

type Config struct {
	Mode          Mode
	TopK          int
	Alpha         float64
	MinScore      float64
	FuzzyCutoff   float64
	CandidatePool int
	SemanticTopK  int
	// SemanticEnabled marks the semantic channel as expected; its absence
	// then flags responses as degraded.
	SemanticEnabled  bool
	SemanticTimeout  time.Duration
	BreakerThreshold int
	BreakerReset     time.Duration
}

func DefaultConfig() Config {
	return Config{
		Mode:             ModeFallback,
		TopK:             10,
		Alpha:            0.6,
		MinScore:         0.1,
		FuzzyCutoff:      fuzzy.DefaultCutoff,
		CandidatePool:    50,
		SemanticTopK:     5,
		SemanticEnabled:  true,
		SemanticTimeout:  2 * time.Second,
		BreakerThreshold: 5,
		BreakerReset:     30 * time.Second,
	}
}

// ConfigFrom maps application configuration onto the engine.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Mode:             Mode(cfg.Fusion.Mode),
		TopK:             cfg.Ranker.TopK,
		Alpha:            cfg.Fusion.Alpha,
		MinScore:         cfg.Fusion.MinScoreThreshold,
		FuzzyCutoff:      cfg.Fusion.FuzzyCutoff,
		CandidatePool:    cfg.Fusion.CandidatePool,
		SemanticTopK:     cfg.Fusion.SemanticTopK,
		SemanticEnabled:  cfg.Embedding.Enabled,
		SemanticTimeout:  cfg.Fusion.SemanticTimeout,
		BreakerThreshold: cfg.Fusion.BreakerThreshold,
		BreakerReset:     cfg.Fusion.BreakerReset,
	}
}

// Result is one ranked document. Lexical and Semantic carry the per-channel
// scores that went into Score: raw BM25 and cosine similarity for single
// channel answers, normalised values for hybrid ones.
type Result struct {
	DocID    int     `json:"doc_id"`
	Score    float64 `json:"score"`
	Lexical  float64 `json:"lexical,omitempty"`
	Semantic float64 `json:"semantic,omitempty"`
}

func better(a, b Result) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

type Response struct {
	Query          string           `json:"query"`
	CorrectedQuery string           `json:"corrected_query,omitempty"`
	Provenance     Provenance       `json:"provenance"`
	Degraded       bool             `json:"degraded"`
	Results        []Result         `json:"results"`
	IndexGen       uint64           `json:"index_generation"`
	Timings        map[string]int64 `json:"timings_us,omitempty"`
}

// DocIDs lists the result IDs in rank order.
func (r *Response) DocIDs() []int {
	ids := make([]int, len(r.Results))
	for i, res := range r.Results {
		ids[i] = res.DocID
	}
	return ids
}

type Engine struct {
	ranker    *ranker.Ranker
	corrector *fuzzy.Corrector
	cfg       Config
	breaker   *resilience.CircuitBreaker
	metrics   *metrics.Metrics
	logger    *slog.Logger

	publishMu sync.Mutex
	state     atomic.Pointer[servingState]
}

// servingState pairs a BM25 snapshot with the retriever built from the same
// corpus. A request loads it once so both channels agree on doc IDs.
type servingState struct {
	snap      *ranker.Snapshot
	retriever Retriever
}

// snapshot falls back to the ranker's own snapshot when nothing has been
// published through the engine yet.
func (s *servingState) snapshot(r *ranker.Ranker) *ranker.Snapshot {
	if s.snap != nil {
		return s.snap
	}
	return r.Snapshot()
}

func (s *servingState) generation(r *ranker.Ranker) uint64 {
	if snap := s.snapshot(r); snap != nil {
		return snap.Generation
	}
	return 0
}

type Option func(*Engine)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithRetriever attaches the semantic channel. A nil retriever leaves the
// engine lexical-only.
func WithRetriever(r Retriever) Option {
	return func(e *Engine) {
		if r != nil {
			e.state.Store(&servingState{snap: e.ranker.Snapshot(), retriever: r})
		}
	}
}

func New(r *ranker.Ranker, cfg Config, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.Mode == "" {
		cfg.Mode = def.Mode
	}
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.SemanticTopK <= 0 {
		cfg.SemanticTopK = def.SemanticTopK
	}
	if cfg.CandidatePool <= 0 {
		cfg.CandidatePool = def.CandidatePool
	}
	e := &Engine{
		ranker:    r,
		corrector: fuzzy.New(cfg.FuzzyCutoff),
		cfg:       cfg,
		logger:    logger.WithComponent("fusion"),
	}
	e.state.Store(&servingState{snap: r.Snapshot()})
	for _, opt := range opts {
		opt(e)
	}
	e.breaker = resilience.NewCircuitBreaker("semantic", resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.BreakerThreshold,
		ResetTimeout:     cfg.BreakerReset,
		OnStateChange: func(name string, _, to resilience.State) {
			if e.metrics != nil {
				e.metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	return e
}

// SetRetriever swaps the semantic channel while keeping the current BM25
// snapshot. The retriever must index the same corpus; rebuilds use Publish.
func (e *Engine) SetRetriever(r Retriever) {
	e.publishMu.Lock()
	defer e.publishMu.Unlock()
	e.swap(&servingState{snap: e.state.Load().snapshot(e.ranker), retriever: r})
}

// Publish makes snap and r current in a single store, so no request sees
// the new index with the old retriever or the reverse. r may be nil for a
// lexical-only generation. It returns the published generation.
func (e *Engine) Publish(snap *ranker.Snapshot, r Retriever) uint64 {
	e.publishMu.Lock()
	defer e.publishMu.Unlock()
	gen := e.ranker.Publish(snap)
	e.swap(&servingState{snap: snap, retriever: r})
	return gen
}

func (e *Engine) swap(next *servingState) {
	e.state.Store(next)
	e.breaker.Reset()
	if next.retriever == nil {
		e.logger.Warn("semantic channel detached, serving lexical only")
	} else {
		e.logger.Info("semantic channel attached", "generation", next.generation(e.ranker))
	}
}

func (e *Engine) HasRetriever() bool {
	return e.state.Load().retriever != nil
}

func (e *Engine) BreakerState() resilience.State {
	return e.breaker.GetState()
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) Ranker() *ranker.Ranker {
	return e.ranker
}

// Generation is the generation of the BM25 snapshot currently served.
func (e *Engine) Generation() uint64 {
	return e.state.Load().generation(e.ranker)
}

// Request overrides the engine defaults for one search. Zero values fall
// back to the configured limit, mode and alpha.
type Request struct {
	Query string
	Limit int
	Mode  Mode
	Alpha *float64
}

// Search answers raw with the configured mode. It only fails on invalid
// input; "no results" is an empty Response.
func (e *Engine) Search(ctx context.Context, raw string) (*Response, error) {
	return e.Do(ctx, Request{Query: raw})
}

// Do runs one search with per-request overrides.
func (e *Engine) Do(ctx context.Context, req Request) (*Response, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = e.cfg.TopK
	}
	mode := req.Mode
	if mode == "" {
		mode = e.cfg.Mode
	}
	switch mode {
	case ModeFallback:
		return e.observe(ctx, string(mode), func(ctx context.Context) *Response {
			return e.fallbackSearch(ctx, req.Query, limit)
		}), nil
	case ModeHybrid:
		alpha := e.cfg.Alpha
		if req.Alpha != nil {
			alpha = *req.Alpha
		}
		if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
			return nil, apperrors.Invalid("alpha must be in [0,1], got %v", alpha)
		}
		return e.observe(ctx, string(mode), func(ctx context.Context) *Response {
			return e.hybridSearch(ctx, req.Query, alpha, limit)
		}), nil
	default:
		return nil, apperrors.Invalid("unknown search mode %q", mode)
	}
}

func (e *Engine) fallbackSearch(ctx context.Context, raw string, limit int) *Response {
	st := e.state.Load()
	snap := st.snapshot(e.ranker)
	q := parser.Parse(raw, e.ranker.Tokenizer())
	resp := e.newResponse(raw, ProvenanceLexical, snap)
	if q.IsBlank() {
		return resp
	}

	_, span := tracing.StartChildSpan(ctx, "bm25")
	hits := e.ranker.SearchIn(snap, q.Terms, limit)
	span.SetAttr("hits", len(hits))
	span.End()
	for _, h := range hits {
		if h.Score >= e.cfg.MinScore {
			resp.Results = append(resp.Results, Result{DocID: h.DocID, Score: h.Score, Lexical: h.Score})
		}
	}
	if len(resp.Results) > 0 {
		return resp
	}

	retriever := st.retriever
	if retriever == nil {
		resp.Degraded = e.cfg.SemanticEnabled
		return resp
	}

	text := raw
	corrected := ""
	_, span = tracing.StartChildSpan(ctx, "correct")
	if snap != nil {
		if c, ok := e.corrector.CorrectText(raw, snap.Surface); ok {
			corrected, text = c, c
			if e.metrics != nil {
				e.metrics.QueryCorrections.Inc()
			}
		}
	}
	span.End()

	matches, err := e.semanticSearch(ctx, retriever, text, min(e.cfg.SemanticTopK, limit))
	if err != nil {
		resp.Degraded = true
		return resp
	}
	resp.Provenance = ProvenanceSemantic
	resp.CorrectedQuery = corrected
	for _, m := range matches {
		resp.Results = append(resp.Results, Result{DocID: m.DocID, Score: m.Similarity, Semantic: m.Similarity})
	}
	return resp
}

// HybridSearch blends BM25 and semantic scores. Both channels contribute
// their top max(CandidatePool, limit) candidates; each channel is min-max
// normalised over its own candidates, a constant channel normalises to 1
// and a document missing from a channel scores 0 there. The final score is
// alpha*semantic + (1-alpha)*lexical. Alpha outside [0,1] is rejected with
// ErrInvalidInput.
func (e *Engine) HybridSearch(ctx context.Context, raw string, alpha float64) (*Response, error) {
	return e.Do(ctx, Request{Query: raw, Mode: ModeHybrid, Alpha: &alpha})
}

func (e *Engine) hybridSearch(ctx context.Context, raw string, alpha float64, limit int) *Response {
	st := e.state.Load()
	snap := st.snapshot(e.ranker)
	q := parser.Parse(raw, e.ranker.Tokenizer())
	resp := e.newResponse(raw, ProvenanceLexical, snap)
	if q.IsBlank() {
		return resp
	}
	pool := max(e.cfg.CandidatePool, limit)

	_, span := tracing.StartChildSpan(ctx, "bm25")
	lexical := e.ranker.SearchIn(snap, q.Terms, pool)
	span.SetAttr("hits", len(lexical))
	span.End()

	lexicalOnly := func() *Response {
		for _, h := range lexical[:min(len(lexical), limit)] {
			resp.Results = append(resp.Results, Result{DocID: h.DocID, Score: h.Score, Lexical: h.Score})
		}
		return resp
	}

	retriever := st.retriever
	if retriever == nil {
		resp.Degraded = e.cfg.SemanticEnabled
		return lexicalOnly()
	}
	matches, err := e.semanticSearch(ctx, retriever, raw, pool)
	if err != nil {
		resp.Degraded = true
		return lexicalOnly()
	}

	_, span = tracing.StartChildSpan(ctx, "fuse")
	defer span.End()
	lexScores := make(map[int]float64, len(lexical))
	for _, h := range lexical {
		lexScores[h.DocID] = h.Score
	}
	semScores := make(map[int]float64, len(matches))
	for _, m := range matches {
		semScores[m.DocID] = m.Similarity
	}
	lexNorm := minMax(lexScores)
	semNorm := minMax(semScores)

	candidates := make([]Result, 0, len(lexNorm)+len(semNorm))
	for id, l := range lexNorm {
		s := semNorm[id]
		candidates = append(candidates, Result{DocID: id, Score: alpha*s + (1-alpha)*l, Lexical: l, Semantic: s})
	}
	for id, s := range semNorm {
		if _, seen := lexNorm[id]; seen {
			continue
		}
		candidates = append(candidates, Result{DocID: id, Score: alpha * s, Semantic: s})
	}
	span.SetAttr("candidates", len(candidates))
	resp.Provenance = ProvenanceHybrid
	resp.Results = merger.TopK(candidates, limit, better)
	return resp
}

// minMax rescales scores to [0,1]. A channel whose scores are all equal
// maps to 1.
func minMax(scores map[int]float64) map[int]float64 {
	out := make(map[int]float64, len(scores))
	if len(scores) == 0 {
		return out
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range scores {
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}
	for id, s := range scores {
		if hi == lo {
			out[id] = 1
		} else {
			out[id] = (s - lo) / (hi - lo)
		}
	}
	return out
}

// semanticSearch runs embed and nearest under the breaker and the semantic
// timeout. Every failure is reported as ErrRetrieverUnavailable.
func (e *Engine) semanticSearch(ctx context.Context, r Retriever, text string, k int) ([]semantic.Match, error) {
	ctx, span := tracing.StartChildSpan(ctx, "semantic")
	defer span.End()
	var matches []semantic.Match
	err := e.breaker.Execute(func() error {
		var err error
		matches, err = resilience.Call(ctx, e.cfg.SemanticTimeout, "semantic-search", func(ctx context.Context) ([]semantic.Match, error) {
			vec, err := r.Embed(ctx, text)
			if err != nil {
				return nil, err
			}
			return r.Nearest(ctx, vec, k)
		})
		return err
	})
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.Is(err, resilience.ErrCircuitOpen) {
			outcome = "open"
		}
		logger.FromContext(ctx).Warn("semantic channel unavailable, degrading to lexical", "outcome", outcome, "error", err)
		err = errors.Join(apperrors.ErrRetrieverUnavailable, err)
	}
	span.SetAttr("outcome", outcome)
	span.SetAttr("hits", len(matches))
	if e.metrics != nil {
		e.metrics.FallbacksTotal.WithLabelValues(outcome).Inc()
	}
	return matches, err
}

func (e *Engine) newResponse(raw string, p Provenance, snap *ranker.Snapshot) *Response {
	resp := &Response{Query: raw, Provenance: p, Results: []Result{}}
	if snap != nil {
		resp.IndexGen = snap.Generation
	}
	return resp
}

// observe wraps a search in a trace span and records metrics.
func (e *Engine) observe(ctx context.Context, mode string, fn func(ctx context.Context) *Response) *Response {
	start := time.Now()
	ctx, root := tracing.StartSpan(ctx, "search", logger.RequestID(ctx))
	root.SetAttr("mode", mode)
	resp := fn(ctx)
	root.End()
	resp.Timings = root.Timings()
	root.SetAttr("provenance", string(resp.Provenance))
	root.Log(logger.FromContext(ctx))
	if e.metrics != nil {
		label := string(resp.Provenance)
		if len(resp.Results) == 0 {
			label = "empty"
		}
		e.metrics.SearchQueriesTotal.WithLabelValues(label).Inc()
		e.metrics.SearchLatency.WithLabelValues(mode).Observe(time.Since(start).Seconds())
		e.metrics.SearchResultsCount.Observe(float64(len(resp.Results)))
		if resp.Degraded {
			e.metrics.DegradedTotal.Inc()
		}
	}
	return resp
}
