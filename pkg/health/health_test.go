package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWorstStatusWins(t *testing.T) {
	c := NewChecker()
	c.Register("index", PingCheck(func(context.Context) error { return nil }, false))
	c.Register("redis", PingCheck(func(context.Context) error { return errors.New("refused") }, true))

	report := c.Run(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, StatusUp, report.Components["index"].Status)
	assert.Equal(t, "refused", report.Components["redis"].Message)

	c.Register("corpus", PingCheck(func(context.Context) error { return errors.New("empty") }, false))
	assert.Equal(t, StatusDown, c.Run(context.Background()).Status)
}

func TestReadyHandlerDegradedStillServes(t *testing.T) {
	c := NewChecker()
	c.Register("semantic", PingCheck(func(context.Context) error { return errors.New("open") }, true))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var report Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, StatusDegraded, report.Status)
}

func TestReadyHandlerDown(t *testing.T) {
	c := NewChecker()
	c.Register("index", PingCheck(func(context.Context) error { return errors.New("not built") }, false))
	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSlowCheckTimesOut(t *testing.T) {
	c := NewChecker()
	c.CheckTimeout = 10 * time.Millisecond
	c.Register("postgres", func(ctx context.Context) ComponentHealth {
		time.Sleep(200 * time.Millisecond)
		return ComponentHealth{Status: StatusUp}
	})

	report := c.Run(context.Background())
	assert.Equal(t, StatusDown, report.Status)
	assert.Equal(t, "check timed out", report.Components["postgres"].Message)
}

func TestLiveHandlerReportsUptime(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker().LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"uptime"`)
}
