package evaluation

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/postgres"
)

// Schema creates the run and per-query tables.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS evaluation_runs (
		id             BIGSERIAL PRIMARY KEY,
		k              INTEGER NOT NULL,
		queries        INTEGER NOT NULL,
		skipped        INTEGER NOT NULL,
		mean_precision DOUBLE PRECISION NOT NULL,
		mean_recall    DOUBLE PRECISION NOT NULL,
		mean_mrr       DOUBLE PRECISION NOT NULL,
		mean_ndcg      DOUBLE PRECISION NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS evaluation_queries (
		run_id         BIGINT NOT NULL REFERENCES evaluation_runs(id) ON DELETE CASCADE,
		ordinal        INTEGER NOT NULL,
		query          TEXT NOT NULL,
		precision_at_k DOUBLE PRECISION NOT NULL,
		recall_at_k    DOUBLE PRECISION NOT NULL,
		mrr            DOUBLE PRECISION NOT NULL,
		ndcg_at_k      DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, ordinal)
	)`,
}

// Store persists evaluation reports so runs can be compared over time.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{db: db, logger: logger.WithComponent("evaluation-store")}
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.db.Migrate(ctx, Schema...)
}

// SaveRun stores the report and its rows in one transaction and returns
// the run ID.
func (s *Store) SaveRun(ctx context.Context, report *Report) (int64, error) {
	mean := report.Mean()
	var runID int64
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO evaluation_runs
				(k, queries, skipped, mean_precision, mean_recall, mean_mrr, mean_ndcg, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			report.K, mean.Queries, report.Skipped,
			mean.Precision, mean.Recall, mean.MRR, mean.NDCG, report.CreatedAt,
		).Scan(&runID)
		if err != nil {
			return fmt.Errorf("inserting evaluation run: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO evaluation_queries (run_id, ordinal, query, precision_at_k, recall_at_k, mrr, ndcg_at_k)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`)
		if err != nil {
			return fmt.Errorf("preparing query insert: %w", err)
		}
		defer stmt.Close()
		for i, q := range report.Queries {
			if _, err := stmt.ExecContext(ctx, runID, i, q.Query, q.Precision, q.Recall, q.MRR, q.NDCG); err != nil {
				return fmt.Errorf("inserting query row %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("evaluation run saved", "run_id", runID, "queries", mean.Queries)
	return runID, nil
}

// LatestSummary returns the most recent run's means, or nil when no run
// has been saved.
func (s *Store) LatestSummary(ctx context.Context) (*Summary, error) {
	var sum Summary
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT queries, mean_precision, mean_recall, mean_mrr, mean_ndcg
		 FROM evaluation_runs ORDER BY created_at DESC, id DESC LIMIT 1`,
	).Scan(&sum.Queries, &sum.Precision, &sum.Recall, &sum.MRR, &sum.NDCG)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest evaluation run: %w", err)
	}
	return &sum, nil
}
