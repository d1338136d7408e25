package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/metrics"
)

// DefaultK is the cut-off used when none is configured.
const DefaultK = 10

type QueryMetrics struct {
	Query     string  `json:"query"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	MRR       float64 `json:"mrr"`
	NDCG      float64 `json:"ndcg"`
}

// Summary averages QueryMetrics over a report.
type Summary struct {
	Queries   int     `json:"queries"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	MRR       float64 `json:"mrr"`
	NDCG      float64 `json:"ndcg"`
}

type Report struct {
	K         int            `json:"k"`
	Queries   []QueryMetrics `json:"queries"`
	Skipped   int            `json:"skipped"`
	CreatedAt time.Time      `json:"created_at"`
}

// Mean averages each metric; an empty report averages to zero.
func (r *Report) Mean() Summary {
	s := Summary{Queries: len(r.Queries)}
	if s.Queries == 0 {
		return s
	}
	for _, q := range r.Queries {
		s.Precision += q.Precision
		s.Recall += q.Recall
		s.MRR += q.MRR
		s.NDCG += q.NDCG
	}
	n := float64(s.Queries)
	s.Precision /= n
	s.Recall /= n
	s.MRR /= n
	s.NDCG /= n
	return s
}

type Evaluator struct {
	judge   *Judge
	k       int
	workers int
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Evaluator)

func WithWorkers(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.workers = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Evaluator) { e.metrics = m }
}

// New builds an evaluator judging against c with cut-off k (DefaultK when
// k <= 0).
func New(c *corpus.Corpus, k int, opts ...Option) *Evaluator {
	if k <= 0 {
		k = DefaultK
	}
	e := &Evaluator{
		judge:   NewJudge(c),
		k:       k,
		workers: runtime.GOMAXPROCS(0),
		logger:  logger.WithComponent("evaluator"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) K() int { return e.k }

// EvaluateQuery scores one logged search.
func (e *Evaluator) EvaluateQuery(query string, results []int) QueryMetrics {
	words := QueryWords(query)
	labels := e.judge.Labels(words, results, e.k)
	return QueryMetrics{
		Query:     query,
		Precision: PrecisionAtK(labels, e.k),
		Recall:    RecallAtK(labels, e.k, e.judge.TotalRelevant(words)),
		MRR:       ReciprocalRank(labels, e.k),
		NDCG:      NDCGAtK(labels, e.k),
	}
}

// Evaluate scores every record concurrently. Rows keep input order.
func (e *Evaluator) Evaluate(ctx context.Context, records []analytics.QueryLogRecord) (*Report, error) {
	start := time.Now()
	report := &Report{
		K:         e.k,
		Queries:   make([]QueryMetrics, len(records)),
		CreatedAt: start.UTC(),
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, rec := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report.Queries[i] = e.EvaluateQuery(rec.Query, rec.Results)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluating query log: %w", err)
	}

	mean := report.Mean()
	if e.metrics != nil {
		e.metrics.EvaluationMetric.WithLabelValues("precision").Set(mean.Precision)
		e.metrics.EvaluationMetric.WithLabelValues("recall").Set(mean.Recall)
		e.metrics.EvaluationMetric.WithLabelValues("mrr").Set(mean.MRR)
		e.metrics.EvaluationMetric.WithLabelValues("ndcg").Set(mean.NDCG)
	}
	e.logger.Info("evaluation complete",
		"queries", len(records),
		"k", e.k,
		"mean_precision", mean.Precision,
		"mean_recall", mean.Recall,
		"mean_mrr", mean.MRR,
		"mean_ndcg", mean.NDCG,
		"duration", time.Since(start),
	)
	return report, nil
}
