package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/metrics"
)

// Collector decouples the request path from query-log sinks. Track never
// blocks: when the buffer is full the record is dropped and counted.
// Records are flushed to every sink when a batch fills or on each tick.
type Collector struct {
	sinks         []Sink
	recordCh      chan QueryLogRecord
	batchSize     int
	flushInterval time.Duration
	metrics       *metrics.Metrics
	logger        *slog.Logger
	done          chan struct{}
	closeOnce     sync.Once
}

type CollectorConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	Metrics       *metrics.Metrics
}

func NewCollector(cfg CollectorConfig, sinks ...Sink) *Collector {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 10000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	return &Collector{
		sinks:         sinks,
		recordCh:      make(chan QueryLogRecord, cfg.BufferSize),
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		metrics:       cfg.Metrics,
		logger:        logger.WithComponent("analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the flush loop. It runs until ctx is cancelled or Close
// is called, then drains what is buffered.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()
		batch := make([]QueryLogRecord, 0, c.batchSize)
		for {
			select {
			case rec, ok := <-c.recordCh:
				if !ok {
					c.flush(context.Background(), batch)
					return
				}
				batch = append(batch, rec)
				if len(batch) >= c.batchSize {
					c.flush(ctx, batch)
					batch = batch[:0]
				}
			case <-ticker.C:
				c.flush(ctx, batch)
				batch = batch[:0]
			case <-ctx.Done():
				c.drainRemaining(batch)
				return
			}
		}
	}()
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.recordCh),
		"batch_size", c.batchSize,
		"sinks", len(c.sinks),
	)
}

func (c *Collector) Track(rec QueryLogRecord) {
	select {
	case c.recordCh <- rec:
	default:
		if c.metrics != nil {
			c.metrics.QueryLogDropped.Inc()
		}
		c.logger.Warn("query log record dropped (buffer full)", "query", rec.Query)
	}
}

// Close stops accepting records, waits for the final flush and closes the
// sinks. Start must have been called. Track must not be called after Close.
func (c *Collector) Close() {
	c.closeOnce.Do(func() { close(c.recordCh) })
	<-c.done
	for _, s := range c.sinks {
		if err := s.Close(); err != nil {
			c.logger.Error("closing sink", "error", err)
		}
	}
}

func (c *Collector) drainRemaining(batch []QueryLogRecord) {
	for {
		select {
		case rec, ok := <-c.recordCh:
			if !ok {
				c.flush(context.Background(), batch)
				return
			}
			batch = append(batch, rec)
		default:
			c.flush(context.Background(), batch)
			return
		}
	}
}

func (c *Collector) flush(ctx context.Context, batch []QueryLogRecord) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for _, s := range c.sinks {
		if err := s.Write(ctx, batch); err != nil {
			c.logger.Error("query log flush failed", "batch_size", len(batch), "error", err)
		}
	}
	c.logger.Debug("query log flushed", "records", len(batch))
}
