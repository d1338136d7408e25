// Package indexer builds and swaps the search indexes. A build loads the
// corpus, fits BM25, embeds the documents for the semantic channel and then
// publishes all of it to the fusion engine. Readers keep serving the old
// snapshot until the swap.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/searcher/fusion"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/semantic"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/metrics"
)

// Invalidator drops cached responses after a rebuild.
type Invalidator interface {
	Invalidate(ctx context.Context) (int64, error)
}

type BuildStats struct {
	Documents     int           `json:"documents"`
	Vocabulary    int           `json:"vocabulary"`
	AvgDocLength  float64       `json:"avg_doc_length"`
	Generation    uint64        `json:"generation"`
	Semantic      bool          `json:"semantic"`
	SemanticModel string        `json:"semantic_model,omitempty"`
	Duration      time.Duration `json:"duration_ns"`
}

type Builder struct {
	cfg     *config.Config
	engine  *fusion.Engine
	cache   Invalidator
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu     sync.Mutex
	corpus atomic.Pointer[corpus.Corpus]
	last   atomic.Pointer[BuildStats]
}

type Option func(*Builder)

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

func WithInvalidator(inv Invalidator) Option {
	return func(b *Builder) { b.cache = inv }
}

func NewBuilder(cfg *config.Config, engine *fusion.Engine, opts ...Option) *Builder {
	b := &Builder{
		cfg:    cfg,
		engine: engine,
		logger: logger.WithComponent("indexer"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build reloads the corpus from disk and rebuilds every index.
func (b *Builder) Build(ctx context.Context) (*BuildStats, error) {
	c, err := corpus.LoadCSV(b.cfg.Corpus)
	if err != nil {
		b.recordFailure()
		return nil, err
	}
	return b.BuildFrom(ctx, c)
}

// BuildFrom indexes c. The BM25 snapshot and the retriever are both built
// before either is published, then swapped in together, so searches keep
// the previous generation until the new one is complete. On a BM25 failure
// nothing is swapped. A semantic failure publishes the new generation
// lexical-only, since vectors from an older corpus would point at the wrong
// documents.
func (b *Builder) BuildFrom(ctx context.Context, c *corpus.Corpus) (*BuildStats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	start := time.Now()
	docs := c.Documents()

	snap, err := b.engine.Ranker().Prepare(docs)
	if err != nil {
		b.recordFailure()
		return nil, fmt.Errorf("fitting bm25: %w", err)
	}
	stats := &BuildStats{
		Documents:    c.Len(),
		Vocabulary:   snap.Index.Vocabulary().Len(),
		AvgDocLength: snap.Index.AvgDocLength(),
	}

	var channel fusion.Retriever
	retriever, err := semantic.Load(ctx, b.cfg.Embedding, docs)
	switch {
	case err == nil:
		channel = retriever
		stats.Semantic = true
		stats.SemanticModel = retriever.ModelName()
	case errors.Is(err, semantic.ErrDisabled):
	default:
		b.logger.Warn("semantic index unavailable, serving lexical-only", "error", err)
	}

	stats.Generation = b.engine.Publish(snap, channel)
	b.corpus.Store(c)

	if b.cache != nil {
		if _, err := b.cache.Invalidate(ctx); err != nil {
			b.logger.Error("cache invalidation after rebuild failed", "error", err)
		}
	}

	stats.Duration = time.Since(start)
	b.last.Store(stats)
	if b.metrics != nil {
		b.metrics.IndexedDocuments.Set(float64(stats.Documents))
		b.metrics.IndexVocabulary.Set(float64(stats.Vocabulary))
		b.metrics.IndexRebuildsTotal.WithLabelValues("ok").Inc()
	}
	b.logger.Info("index build complete",
		"documents", stats.Documents,
		"vocabulary", stats.Vocabulary,
		"generation", stats.Generation,
		"semantic", stats.Semantic,
		"duration", stats.Duration,
	)
	return stats, nil
}

// Corpus returns the corpus of the last successful build, or nil.
func (b *Builder) Corpus() *corpus.Corpus {
	return b.corpus.Load()
}

// LastBuild returns stats of the last successful build, or nil.
func (b *Builder) LastBuild() *BuildStats {
	return b.last.Load()
}

func (b *Builder) recordFailure() {
	if b.metrics != nil {
		b.metrics.IndexRebuildsTotal.WithLabelValues("error").Inc()
	}
}
