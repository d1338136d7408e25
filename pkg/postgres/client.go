// Package postgres opens a lib/pq connection pool and provides transaction
// and schema helpers for the evaluation run store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/resilience"
)

type Client struct {
	DB  *sql.DB
	cfg config.PostgresConfig
}

// New opens the pool and pings it, retrying while the database comes up.
func New(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	err = resilience.Retry(ctx, "postgres-ping", resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
	}, func(ctx context.Context) error {
		return resilience.WithTimeout(ctx, 5*time.Second, "postgres-ping", db.PingContext)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return FromDB(db, cfg), nil
}

// FromDB wraps an already-open handle.
func FromDB(db *sql.DB, cfg config.PostgresConfig) *Client {
	return &Client{DB: db, cfg: cfg}
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Migrate executes each statement in order inside one transaction. The
// statements are expected to be idempotent (CREATE ... IF NOT EXISTS).
func (c *Client) Migrate(ctx context.Context, statements ...string) error {
	return c.InTx(ctx, func(tx *sql.Tx) error {
		for i, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration statement %d: %w", i, err)
			}
		}
		return nil
	})
}

func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
