package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWriterJSONCarriesRequestID(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	SetupWriter(&buf, "debug", "json")

	ctx := WithRequestID(context.Background(), "req-42")
	FromContext(ctx).Debug("ranked", "results", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-42", line["request_id"])
	assert.Equal(t, "ranked", line["msg"])
	assert.EqualValues(t, 3, line["results"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, parseLevel("whatever"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestRequestIDMissing(t *testing.T) {
	assert.Empty(t, RequestID(context.Background()))
}
