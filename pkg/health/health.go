// Package health runs registered dependency checks in parallel and serves
// the aggregate as liveness and readiness probes. Optional dependencies
// (cache, query-log broker, semantic model) report degraded rather than down
// so the lexical search path stays ready without them.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/logger"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// severity orders statuses so the worst component decides the overall one.
func (s Status) severity() int {
	switch s {
	case StatusUp:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

type Check func(ctx context.Context) ComponentHealth

type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  time.Time                  `json:"timestamp"`
}

// Checker holds the named checks. Each check gets CheckTimeout; a check
// that overruns is reported down.
type Checker struct {
	CheckTimeout time.Duration

	mu      sync.RWMutex
	checks  map[string]Check
	started time.Time
	logger  *slog.Logger
}

func NewChecker() *Checker {
	return &Checker{
		CheckTimeout: 2 * time.Second,
		checks:       make(map[string]Check),
		started:      time.Now(),
		logger:       logger.WithComponent("health"),
	}
}

// Register adds or replaces a named check.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Run executes every check concurrently. The overall status is the worst
// component status.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := maps.Clone(c.checks)
	c.mu.RUnlock()

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(checks)),
		Timestamp:  time.Now().UTC(),
	}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for name, check := range checks {
		wg.Go(func() {
			result := c.runOne(ctx, name, check)
			mu.Lock()
			report.Components[name] = result
			if result.Status.severity() > report.Status.severity() {
				report.Status = result.Status
			}
			mu.Unlock()
		})
	}
	wg.Wait()
	return report
}

func (c *Checker) runOne(ctx context.Context, name string, check Check) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, c.CheckTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan ComponentHealth, 1)
	go func() { done <- check(ctx) }()

	var result ComponentHealth
	select {
	case result = <-done:
	case <-ctx.Done():
		result = ComponentHealth{Status: StatusDown, Message: "check timed out"}
	}
	result.Latency = time.Since(start).Round(time.Millisecond).String()
	if result.Status != StatusUp {
		c.logger.Warn("health check not up", "check", name, "status", result.Status, "message", result.Message)
	}
	return result
}

// PingCheck adapts a ping function into a Check. Optional dependencies
// report StatusDegraded on failure, required ones StatusDown.
func PingCheck(ping func(ctx context.Context) error, optional bool) Check {
	return func(ctx context.Context) ComponentHealth {
		if err := ping(ctx); err != nil {
			status := StatusDown
			if optional {
				status = StatusDegraded
			}
			return ComponentHealth{Status: status, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

// LiveHandler reports the process is up without running any check.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "alive",
			"uptime": time.Since(c.started).Round(time.Second).String(),
		})
	}
}

// ReadyHandler answers 200 unless some required check is down.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		status := http.StatusOK
		if report.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
