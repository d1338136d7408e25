package analytics

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	segkafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/searcher/fusion"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/metrics"
)

type recordingSink struct {
	mu      sync.Mutex
	records []QueryLogRecord
	closed  bool
}

func (s *recordingSink) Write(_ context.Context, records []QueryLogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type recordingWriter struct {
	msgs []segkafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...segkafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func record(query string, results ...int) QueryLogRecord {
	return QueryLogRecord{Query: query, Results: results, Provenance: "lexical", Timestamp: time.Now().UTC()}
}

func TestNewRecordFromResponse(t *testing.T) {
	resp := &fusion.Response{
		Query:          "paracetamo",
		CorrectedQuery: "paracetamol",
		Provenance:     fusion.ProvenanceSemantic,
		Results:        []fusion.Result{{DocID: 4}, {DocID: 1}},
	}
	rec := NewRecord(resp, "req-1", 12*time.Millisecond, true)
	assert.Equal(t, []int{4, 1}, rec.Results)
	assert.Equal(t, "semantic", rec.Provenance)
	assert.Equal(t, "paracetamol", rec.CorrectedQuery)
	assert.Equal(t, int64(12), rec.LatencyMs)
	assert.True(t, rec.CacheHit)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "query")
	assert.Contains(t, raw, "results")
	assert.Contains(t, raw, "timestamp")
}

func TestCollectorFlushesOnBatchSize(t *testing.T) {
	sink := &recordingSink{}
	c := NewCollector(CollectorConfig{BufferSize: 10, BatchSize: 2, FlushInterval: time.Hour}, sink)
	c.Start(context.Background())

	c.Track(record("fever", 1))
	c.Track(record("pain", 2))
	assert.Eventually(t, func() bool { return sink.Len() == 2 }, time.Second, 5*time.Millisecond)

	c.Track(record("cough"))
	c.Close()
	assert.Equal(t, 3, sink.Len())
	assert.True(t, sink.closed)
}

func TestCollectorFlushesOnTick(t *testing.T) {
	sink := &recordingSink{}
	c := NewCollector(CollectorConfig{BufferSize: 10, BatchSize: 100, FlushInterval: 10 * time.Millisecond}, sink)
	c.Start(context.Background())
	defer c.Close()

	c.Track(record("fever", 1))
	assert.Eventually(t, func() bool { return sink.Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestCollectorDrainsOnCancel(t *testing.T) {
	sink := &recordingSink{}
	c := NewCollector(CollectorConfig{BufferSize: 10, BatchSize: 100, FlushInterval: time.Hour}, sink)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	c.Track(record("a"))
	c.Track(record("b"))
	cancel()
	<-c.done
	assert.Equal(t, 2, sink.Len())
}

func TestCollectorDropsWhenFull(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	c := NewCollector(CollectorConfig{BufferSize: 1, Metrics: m})

	c.Track(record("a"))
	c.Track(record("b"))
	c.Track(record("c"))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueryLogDropped))
}

func TestFileSinkWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "search_logs.jsonl")
	sink, err := NewFileSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Write(context.Background(), []QueryLogRecord{record("fever", 3, 1), record("pain")}))
	require.NoError(t, sink.Close())

	// Appends on reopen.
	sink, err = NewFileSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Write(context.Background(), []QueryLogRecord{record("rash", 2)}))
	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var got []QueryLogRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec QueryLogRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		got = append(got, rec)
	}
	require.Len(t, got, 3)
	assert.Equal(t, []int{3, 1}, got[0].Results)
	assert.Equal(t, "rash", got[2].Query)
}

func TestKafkaSinkPublishesKeyedByQuery(t *testing.T) {
	w := &recordingWriter{}
	sink := NewKafkaSink(kafka.NewProducerWithWriter(w, "search-logs"))
	require.NoError(t, sink.Write(context.Background(), []QueryLogRecord{record("fever", 1), record("pain", 2)}))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "fever", string(w.msgs[0].Key))
	var rec QueryLogRecord
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &rec))
	assert.Equal(t, []int{2}, rec.Results)
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	recs := []QueryLogRecord{
		{Query: "fever", Results: []int{1}, Provenance: "lexical", LatencyMs: 10},
		{Query: "fever", Results: []int{1}, Provenance: "lexical", LatencyMs: 20, CacheHit: true},
		{Query: "zzz", Provenance: "lexical", Degraded: true, LatencyMs: 30},
		{Query: "paracetamo", Results: []int{2}, Provenance: "semantic", CorrectedQuery: "paracetamol", LatencyMs: 40},
	}
	require.NoError(t, agg.Write(context.Background(), recs))

	stats := agg.Stats()
	assert.Equal(t, int64(4), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(3), stats.CacheMisses)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
	assert.Equal(t, int64(1), stats.DegradedCount)
	assert.Equal(t, int64(1), stats.CorrectedCount)
	assert.Equal(t, map[string]int64{"lexical": 3, "semantic": 1}, stats.ByProvenance)
	assert.InDelta(t, 25.0, stats.AvgLatencyMs, 1e-9)
	assert.Equal(t, int64(30), stats.P50LatencyMs)
	assert.Equal(t, QueryCount{Query: "fever", Count: 2}, stats.TopQueries[0])
	assert.Equal(t, []QueryCount{{Query: "zzz", Count: 1}}, stats.ZeroResultQueries)
}

func TestStatsHandler(t *testing.T) {
	agg := NewAggregator()
	require.NoError(t, agg.Write(context.Background(), []QueryLogRecord{record("fever", 1)}))

	rec := httptest.NewRecorder()
	NewHandler(agg, nil).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var stats AggregatedStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.TotalSearches)
}

type fakeSnapshots struct {
	stats *AggregatedStats
	err   error
}

func (f fakeSnapshots) LatestSnapshot(context.Context) (*AggregatedStats, error) {
	return f.stats, f.err
}

func TestStatsHandlerSnapshotSource(t *testing.T) {
	agg := NewAggregator()
	get := func(h *Handler, query string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics"+query, nil))
		return rec
	}

	assert.Equal(t, http.StatusServiceUnavailable, get(NewHandler(agg, nil), "?source=snapshot").Code)
	assert.Equal(t, http.StatusBadRequest, get(NewHandler(agg, nil), "?source=disk").Code)
	assert.Equal(t, http.StatusNotFound, get(NewHandler(agg, fakeSnapshots{}), "?source=snapshot").Code)
	assert.Equal(t, http.StatusInternalServerError,
		get(NewHandler(agg, fakeSnapshots{err: errors.New("db down")}), "?source=snapshot").Code)

	rec := get(NewHandler(agg, fakeSnapshots{stats: &AggregatedStats{TotalSearches: 42}}), "?source=snapshot")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats AggregatedStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(42), stats.TotalSearches)
}
