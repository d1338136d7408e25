// Package aggregator persists periodic snapshots of the live search
// statistics to PostgreSQL.
package aggregator

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/postgres"
)

// Schema creates the snapshot table.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS analytics_snapshots (
		id          BIGSERIAL PRIMARY KEY,
		data        JSONB NOT NULL,
		captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS analytics_snapshots_captured_at_idx
		ON analytics_snapshots (captured_at DESC)`,
}

// StatsSource yields the stats to snapshot.
type StatsSource interface {
	Stats() analytics.AggregatedStats
}

type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: logger.WithComponent("analytics-store"),
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.db.Migrate(ctx, Schema...)
}

func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO analytics_snapshots (data, captured_at) VALUES ($1, $2)`,
		data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Info("analytics snapshot saved", "total_searches", stats.TotalSearches)
	return nil
}

// LatestSnapshot returns nil, nil when no snapshot exists yet.
func (s *Store) LatestSnapshot(ctx context.Context) (*analytics.AggregatedStats, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT data FROM analytics_snapshots ORDER BY captured_at DESC LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}
	var stats analytics.AggregatedStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &stats, nil
}

// StartPeriodicSave snapshots src every interval and once more on shutdown.
func (s *Store) StartPeriodicSave(ctx context.Context, src StatsSource, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.SaveSnapshot(ctx, src.Stats()); err != nil {
					s.logger.Error("periodic snapshot failed", "error", err)
				}
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := s.SaveSnapshot(shutdownCtx, src.Stats()); err != nil {
					s.logger.Error("final snapshot failed", "error", err)
				}
				cancel()
				return
			}
		}
	}()
	s.logger.Info("periodic snapshot started", "interval", interval)
}
