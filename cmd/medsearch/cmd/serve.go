package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/resilience"
)

type serveOptions struct {
	port             int
	snapshotInterval time.Duration
}

func newServeCmd(root *rootOptions) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Build the index and serve the search API over HTTP",
		Long: `Build the BM25 and semantic indexes from the corpus, then serve:

  GET  /api/v1/search?q=...&limit=&mode=fallback|hybrid&alpha=
  GET  /api/v1/documents/{id}
  GET  /api/v1/index/stats
  POST /api/v1/index/rebuild
  GET  /api/v1/cache/stats
  POST /api/v1/cache/invalidate
  GET  /api/v1/analytics
  GET  /health/live, /health/ready
  GET  /metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.port > 0 {
				root.cfg.Server.Port = opts.port
			}
			return runServe(cmd.Context(), root, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Override the listen port")
	cmd.Flags().DurationVar(&opts.snapshotInterval, "snapshot-interval", time.Minute, "How often analytics snapshots are saved to Postgres")

	return cmd
}

func runServe(ctx context.Context, root *rootOptions, opts serveOptions) error {
	cfg := root.cfg
	slog.Info("starting search service", "port", cfg.Server.Port, "corpus", cfg.Corpus.Path)

	a, err := newApp(ctx, cfg, appOptions{analytics: true, backends: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if a.postgres != nil {
		if err := startSnapshots(ctx, a, opts.snapshotInterval); err != nil {
			slog.Warn("analytics snapshots disabled", "error", err)
		}
	}

	var stopMetrics func(context.Context) error
	if cfg.Metrics.Enabled && cfg.Metrics.Port > 0 {
		stopMetrics = a.metrics.StartServer(cfg.Metrics.Port)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      newRouter(ctx, a),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if stopMetrics != nil {
			if err := stopMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}
	slog.Info("search service stopped")
	return nil
}

// newRouter mounts every API route on one mux behind the middleware chain.
func newRouter(ctx context.Context, a *app) http.Handler {
	cfg := a.cfg
	h := handler.New(a.engine, a.builder, a.cache, a.tracker(), cfg.Server.MaxResults)

	mux := http.NewServeMux()
	h.Register(mux)
	if a.aggregator != nil {
		var snapshots analytics.SnapshotSource
		if a.postgres != nil {
			snapshots = aggregator.NewStore(a.postgres)
		}
		mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(a.aggregator, snapshots).Stats)
	}

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		last := a.builder.LastBuild()
		if last == nil || last.Documents == 0 {
			return health.ComponentHealth{Status: health.StatusDown, Message: "index not built"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d documents, generation %d", last.Documents, last.Generation)}
	})
	checker.Register("semantic", func(ctx context.Context) health.ComponentHealth {
		switch {
		case !a.engine.HasRetriever():
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "no retriever"}
		case a.engine.BreakerState() == resilience.StateOpen:
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "circuit open"}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	if a.redis != nil {
		checker.Register("redis", health.PingCheck(a.redis.Ping, true))
	}
	if a.postgres != nil {
		checker.Register("postgres", health.PingCheck(a.postgres.Ping, true))
	}
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	if cfg.Metrics.Enabled && cfg.Metrics.Port == 0 {
		mux.Handle("GET /metrics", a.metrics.Handler())
	}

	mws := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.Metrics(a.metrics),
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		mws = append(mws, middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins...)))
	}
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewLimiter(cfg.Server.RateLimit, time.Minute)
		limiter.StartCleanup(ctx, 5*time.Minute)
		mws = append(mws, middleware.RateLimit(limiter))
	}
	mws = append(mws, middleware.Timeout(cfg.Server.WriteTimeout))
	return middleware.Chain(mux, mws...)
}

func startSnapshots(ctx context.Context, a *app, interval time.Duration) error {
	store := aggregator.NewStore(a.postgres)
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	if err := evaluation.NewStore(a.postgres).Migrate(ctx); err != nil {
		return err
	}
	if a.aggregator != nil {
		store.StartPeriodicSave(ctx, a.aggregator, interval)
	}
	return nil
}
