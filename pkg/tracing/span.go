// Package tracing records in-process span trees for a single search request.
// Spans travel in the context, and the root is logged once the request ends.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type contextKey struct{}

// Span represents a timed operation within a trace.
type Span struct {
	Name      string
	TraceID   string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Children  []*Span
	Attrs     map[string]any
	mu        sync.Mutex
}

// StartSpan creates a new root span and stores it in the returned context.
func StartSpan(ctx context.Context, name string, traceID string) (context.Context, *Span) {
	span := newSpan(name, traceID)
	return context.WithValue(ctx, contextKey{}, span), span
}

// StartChildSpan creates a child span linked to the parent in ctx. Without a
// parent the child is a detached root so callers never need a nil check.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	parent := SpanFromContext(ctx)
	child := newSpan(name, "")
	if parent != nil {
		child.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.Children = append(parent.Children, child)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, contextKey{}, child), child
}

func newSpan(name, traceID string) *Span {
	return &Span{
		Name:      name,
		TraceID:   traceID,
		StartTime: time.Now(),
		Attrs:     make(map[string]any),
	}
}

// End records the span's end time and duration.
func (s *Span) End() {
	s.mu.Lock()
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
	s.mu.Unlock()
}

// SetAttr attaches a key-value attribute to the span.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.Attrs[key] = value
	s.mu.Unlock()
}

// SpanFromContext extracts the current Span from ctx, or nil if none.
func SpanFromContext(ctx context.Context) *Span {
	if span, ok := ctx.Value(contextKey{}).(*Span); ok {
		return span
	}
	return nil
}

// Timings flattens the direct children into stage name -> microseconds.
// Repeated stage names accumulate.
func (s *Span) Timings() map[string]int64 {
	s.mu.Lock()
	children := append([]*Span(nil), s.Children...)
	s.mu.Unlock()
	out := make(map[string]int64, len(children))
	for _, c := range children {
		c.mu.Lock()
		out[c.Name] += c.Duration.Microseconds()
		c.mu.Unlock()
	}
	return out
}

// Log writes the span tree to logger at debug level.
func (s *Span) Log(logger *slog.Logger) {
	s.logRecursive(logger, 0)
}

func (s *Span) logRecursive(logger *slog.Logger, depth int) {
	s.mu.Lock()
	attrs := []any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"duration_us", s.Duration.Microseconds(),
		"depth", depth,
	}
	for k, v := range s.Attrs {
		attrs = append(attrs, k, v)
	}
	children := append([]*Span(nil), s.Children...)
	s.mu.Unlock()
	logger.Debug("span", attrs...)

	for _, child := range children {
		child.logRecursive(logger, depth+1)
	}
}
