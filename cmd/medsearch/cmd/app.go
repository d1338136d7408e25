package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/searcher/fusion"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/redis"
)

// app is the wired search stack shared by the subcommands.
type app struct {
	cfg        *config.Config
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	engine     *fusion.Engine
	builder    *indexer.Builder
	cache      *cache.QueryCache
	redis      *pkgredis.Client
	postgres   *postgres.Client
	collector  *analytics.Collector
	aggregator *analytics.Aggregator

	closers []func() error
}

type appOptions struct {
	// analytics starts the query-log collector with its sinks.
	analytics bool
	// backends connects Redis and Postgres when they are enabled in config.
	backends bool
}

// newApp wires the stack and builds the index. Optional backends that fail
// to connect are logged and left out.
func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, registry: prometheus.NewRegistry()}
	a.metrics = metrics.New(a.registry)

	tok, err := tokenizer.New(cfg.Corpus.Tokenizer)
	if err != nil {
		return nil, err
	}
	rk := ranker.New(tok, ranker.Params{K1: cfg.Ranker.K1, B: cfg.Ranker.B})
	a.engine = fusion.New(rk, fusion.ConfigFrom(cfg), fusion.WithMetrics(a.metrics))

	builderOpts := []indexer.Option{indexer.WithMetrics(a.metrics)}
	if opts.backends {
		a.connectBackends(ctx)
		if a.cache != nil {
			builderOpts = append(builderOpts, indexer.WithInvalidator(a.cache))
		}
	}
	a.builder = indexer.NewBuilder(cfg, a.engine, builderOpts...)

	if _, err := a.builder.Build(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("building index: %w", err)
	}

	if opts.analytics {
		if err := a.startAnalytics(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) connectBackends(ctx context.Context) {
	if a.cfg.Redis.Enabled {
		rc, err := pkgredis.NewClient(ctx, a.cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			a.redis = rc
			a.cache = cache.New(rc, a.cfg.Redis.CacheTTL, a.metrics)
			a.closers = append(a.closers, rc.Close)
			slog.Info("search cache enabled", "addr", a.cfg.Redis.Addr, "ttl", a.cfg.Redis.CacheTTL)
		}
	}
	if a.cfg.Postgres.Enabled {
		pg, err := postgres.New(ctx, a.cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, snapshots and run history disabled", "error", err)
		} else {
			a.postgres = pg
			a.closers = append(a.closers, pg.Close)
		}
	}
}

func (a *app) startAnalytics(ctx context.Context) error {
	a.aggregator = analytics.NewAggregator()
	sinks := []analytics.Sink{a.aggregator}

	if path := a.cfg.Analytics.QueryLogPath; path != "" {
		fs, err := analytics.NewFileSink(path)
		if err != nil {
			return fmt.Errorf("opening query log: %w", err)
		}
		sinks = append(sinks, fs)
		slog.Info("query log enabled", "path", path)
	}
	if a.cfg.Kafka.Enabled {
		producer := kafka.NewProducer(a.cfg.Kafka, a.cfg.Kafka.QueryLogsTopic)
		sinks = append(sinks, analytics.NewKafkaSink(producer))
		slog.Info("query log publishing enabled", "topic", a.cfg.Kafka.QueryLogsTopic)
	}

	a.collector = analytics.NewCollector(analytics.CollectorConfig{
		BufferSize:    a.cfg.Analytics.BufferSize,
		FlushInterval: time.Second,
		Metrics:       a.metrics,
	}, sinks...)
	a.collector.Start(ctx)
	return nil
}

// tracker returns the collector as a handler.Tracker, or nil when analytics
// is off. The explicit nil keeps the interface value itself nil.
func (a *app) tracker() handler.Tracker {
	if a.collector == nil {
		return nil
	}
	return a.collector
}

func (a *app) Close() error {
	if a.collector != nil {
		a.collector.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
