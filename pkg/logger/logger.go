// Package logger configures the process-wide slog logger and threads the
// request ID through contexts.
package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

type requestIDKey struct{}

// SetupWriter installs the default logger writing to w. format is "json"
// or "text"; level accepts the slog level names in any case. The CLI passes
// stderr so tables and CSV on stdout stay clean.
func SetupWriter(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// FromContext returns the default logger, tagged with the request ID when
// ctx carries one.
func FromContext(ctx context.Context) *slog.Logger {
	if id := RequestID(ctx); id != "" {
		return slog.Default().With("request_id", id)
	}
	return slog.Default()
}

func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

// parseLevel falls back to info for anything slog does not recognise.
func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
