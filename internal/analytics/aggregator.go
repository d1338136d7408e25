package analytics

import (
	"context"
	"sort"
	"sync"
	"time"
)

// AggregatedStats summarises served searches since start-up.
type AggregatedStats struct {
	TotalSearches     int64            `json:"total_searches"`
	CacheHits         int64            `json:"cache_hits"`
	CacheMisses       int64            `json:"cache_misses"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	DegradedCount     int64            `json:"degraded_count"`
	CorrectedCount    int64            `json:"corrected_count"`
	ByProvenance      map[string]int64 `json:"by_provenance"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      int64            `json:"p50_latency_ms"`
	P95LatencyMs      int64            `json:"p95_latency_ms"`
	P99LatencyMs      int64            `json:"p99_latency_ms"`
	TopQueries        []QueryCount     `json:"top_queries"`
	ZeroResultQueries []QueryCount     `json:"zero_result_queries"`
	QueriesPerMinute  float64          `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

// Aggregator keeps running search statistics. It is a Sink so the
// collector feeds it alongside the durable sinks.
type Aggregator struct {
	mu          sync.RWMutex
	stats       AggregatedStats
	latencies   []int64
	next        int
	queryCounts map[string]int64
	zeroQueries map[string]int64
	startTime   time.Time
	now         func() time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		stats:       AggregatedStats{ByProvenance: make(map[string]int64)},
		latencies:   make([]int64, 0, 1024),
		queryCounts: make(map[string]int64),
		zeroQueries: make(map[string]int64),
		startTime:   time.Now(),
		now:         time.Now,
	}
}

func (a *Aggregator) Write(_ context.Context, records []QueryLogRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, rec := range records {
		a.record(rec)
	}
	return nil
}

func (a *Aggregator) Close() error { return nil }

func (a *Aggregator) record(rec QueryLogRecord) {
	a.stats.TotalSearches++
	if rec.CacheHit {
		a.stats.CacheHits++
	} else {
		a.stats.CacheMisses++
	}
	if rec.Degraded {
		a.stats.DegradedCount++
	}
	if rec.CorrectedQuery != "" {
		a.stats.CorrectedCount++
	}
	if rec.Provenance != "" {
		a.stats.ByProvenance[rec.Provenance]++
	}
	a.queryCounts[rec.Query]++
	if len(rec.Results) == 0 {
		a.stats.ZeroResultCount++
		a.zeroQueries[rec.Query]++
	}
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, rec.LatencyMs)
	} else {
		a.latencies[a.next] = rec.LatencyMs
		a.next = (a.next + 1) % maxLatencySamples
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := a.stats
	stats.ByProvenance = make(map[string]int64, len(a.stats.ByProvenance))
	for k, v := range a.stats.ByProvenance {
		stats.ByProvenance[k] = v
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroQueries, 10)
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n most frequent queries, ties broken alphabetically.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
