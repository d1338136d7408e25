package resilience

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/logger"
)

type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Jitter spreads each delay uniformly over [d*(1-Jitter), d*(1+Jitter)].
	Jitter float64
	// Retryable reports whether an error is worth another attempt. Nil
	// retries everything.
	Retryable func(error) bool
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2
	}
	if c.Jitter <= 0 || c.Jitter > 1 {
		c.Jitter = 0.1
	}
	return c
}

// backoff is the delay before attempt n+1, capped at MaxDelay.
func (c RetryConfig) backoff(n int) time.Duration {
	d := float64(c.InitialDelay)
	for i := 1; i < n && d < float64(c.MaxDelay); i++ {
		d *= c.Multiplier
	}
	d *= 1 + c.Jitter*(2*rand.Float64()-1)
	return time.Duration(min(d, float64(c.MaxDelay)))
}

// Retry calls fn until it succeeds, returns a non-retryable error, the
// attempts run out, or ctx ends.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()
	log := logger.WithComponent("retry").With("operation", name)

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			if attempt > 1 {
				log.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return fmt.Errorf("%s: %w", name, err)
		}
		if attempt == cfg.MaxAttempts {
			return fmt.Errorf("all %d attempts failed for %s: %w", cfg.MaxAttempts, name, err)
		}

		delay := cfg.backoff(attempt)
		log.Warn("attempt failed, backing off", "attempt", attempt, "max_attempts", cfg.MaxAttempts, "delay", delay, "error", err)
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%s: retry aborted: %w (last error: %v)", name, ctx.Err(), err)
		}
	}
}
