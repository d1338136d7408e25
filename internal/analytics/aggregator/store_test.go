package aggregator

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/postgres"
)

// skipIfNoPostgres skips unless MS_TEST_POSTGRES is set. Connection details
// come from the usual MS_POSTGRES_* overrides.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	if os.Getenv("MS_TEST_POSTGRES") == "" {
		t.Skip("MS_TEST_POSTGRES not set")
	}
	cfg, err := config.Load("")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		t.Skipf("skipping: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSnapshotRoundTrip(t *testing.T) {
	db := skipIfNoPostgres(t)
	store := NewStore(db)
	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))

	agg := analytics.NewAggregator()
	require.NoError(t, agg.Write(ctx, []analytics.QueryLogRecord{{Query: "fever", Results: []int{1}, Provenance: "lexical"}}))
	require.NoError(t, store.SaveSnapshot(ctx, agg.Stats()))

	latest, err := store.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.GreaterOrEqual(t, latest.TotalSearches, int64(1))
}
