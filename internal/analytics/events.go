package analytics

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/searcher/fusion"
)

// QueryLogRecord is one served search, one JSON object per line in the
// query log. Query and Results are what the offline evaluator replays; the
// remaining fields feed the live aggregator.
type QueryLogRecord struct {
	Query          string    `json:"query"`
	Results        []int     `json:"results"`
	Provenance     string    `json:"provenance,omitempty"`
	CorrectedQuery string    `json:"corrected_query,omitempty"`
	Degraded       bool      `json:"degraded,omitempty"`
	CacheHit       bool      `json:"cache_hit,omitempty"`
	LatencyMs      int64     `json:"latency_ms,omitempty"`
	RequestID      string    `json:"request_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewRecord captures resp as a log record.
func NewRecord(resp *fusion.Response, requestID string, latency time.Duration, cacheHit bool) QueryLogRecord {
	return QueryLogRecord{
		Query:          resp.Query,
		Results:        resp.DocIDs(),
		Provenance:     string(resp.Provenance),
		CorrectedQuery: resp.CorrectedQuery,
		Degraded:       resp.Degraded,
		CacheHit:       cacheHit,
		LatencyMs:      latency.Milliseconds(),
		RequestID:      requestID,
		Timestamp:      time.Now().UTC(),
	}
}
