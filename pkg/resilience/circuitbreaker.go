// Package resilience provides the fault-tolerance primitives around optional
// dependencies: a circuit breaker, retry with backoff, and deadline-bounded
// calls.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/logger"
)

// ErrCircuitOpen is returned without calling through while the breaker is
// open or its half-open probe budget is spent.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type CircuitBreakerConfig struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxRequests int
	// IsFailure decides which errors count against the breaker. The default
	// ignores context.Canceled, which means the caller went away rather than
	// the dependency failing.
	IsFailure func(error) bool
	// OnStateChange, if set, is called with the lock released after every
	// transition.
	OnStateChange func(name string, from, to State)
}

// Counts is a point-in-time view of the breaker.
type Counts struct {
	State               State
	ConsecutiveFailures int
	TotalFailures       int64
	Rejected            int64
}

func countsAsFailure(err error) bool {
	return !errors.Is(err, context.Canceled)
}

// CircuitBreaker trips open after FailureThreshold consecutive failures,
// rejects calls for ResetTimeout, then lets HalfOpenMaxRequests probes
// through. A successful probe closes it; a failed one re-opens it.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *slog.Logger
	now    func() time.Time

	mu               sync.Mutex
	state            State
	consecutive      int
	totalFailures    int64
	rejected         int64
	openedAt         time.Time
	halfOpenInFlight int
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = countsAsFailure
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		logger: logger.WithComponent("circuit-breaker").With("name", name),
		now:    time.Now,
	}
}

// Execute runs fn if the breaker admits the call and records the outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Counts{
		State:               cb.state,
		ConsecutiveFailures: cb.consecutive,
		TotalFailures:       cb.totalFailures,
		Rejected:            cb.rejected,
	}
}

func (cb *CircuitBreaker) Name() string {
	return cb.name
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	from := cb.state
	var err error
	if cb.state == StateOpen {
		if wait := cb.cfg.ResetTimeout - cb.now().Sub(cb.openedAt); wait > 0 {
			err = fmt.Errorf("%w: %s (retry after %v)", ErrCircuitOpen, cb.name, wait)
		} else {
			cb.state = StateHalfOpen
			cb.halfOpenInFlight = 0
		}
	}
	if err == nil && cb.state == StateHalfOpen {
		if cb.halfOpenInFlight >= cb.cfg.HalfOpenMaxRequests {
			err = fmt.Errorf("%w: %s (probe in flight)", ErrCircuitOpen, cb.name)
		} else {
			cb.halfOpenInFlight++
		}
	}
	if err != nil {
		cb.rejected++
	}
	to := cb.state
	cb.mu.Unlock()
	cb.transitioned(from, to)
	return err
}

func (cb *CircuitBreaker) record(err error) {
	failed := err != nil && cb.cfg.IsFailure(err)

	cb.mu.Lock()
	from := cb.state
	switch {
	case !failed && err != nil:
		// Neither success nor failure: release a probe slot only.
		if cb.state == StateHalfOpen {
			cb.halfOpenInFlight--
		}
	case !failed:
		cb.consecutive = 0
		if cb.state == StateHalfOpen {
			cb.state = StateClosed
			cb.halfOpenInFlight = 0
		}
	default:
		cb.consecutive++
		cb.totalFailures++
		if cb.state == StateHalfOpen || cb.consecutive >= cb.cfg.FailureThreshold {
			cb.state = StateOpen
			cb.openedAt = cb.now()
		}
	}
	to := cb.state
	consecutive := cb.consecutive
	cb.mu.Unlock()

	if from != to && to == StateOpen {
		cb.logger.Warn("circuit opened", "consecutive_failures", consecutive, "threshold", cb.cfg.FailureThreshold, "error", err)
	}
	cb.transitioned(from, to)
}

func (cb *CircuitBreaker) transitioned(from, to State) {
	if from == to {
		return
	}
	cb.logger.Info("circuit state changed", "from", from.String(), "to", to.String())
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, from, to)
	}
}

// Reset closes the breaker and clears the failure streak.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state
	cb.state = StateClosed
	cb.consecutive = 0
	cb.halfOpenInFlight = 0
	cb.mu.Unlock()
	cb.transitioned(from, StateClosed)
}
