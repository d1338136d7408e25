// Package loadtest drives concurrent search traffic at a running server
// and summarises latency and status codes.
package loadtest

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultQueries is a medicine query mix used when no query log is given.
var DefaultQueries = []string{
	"fever",
	"headache pain",
	"paracetamol",
	"allergy sneezing",
	"acidity heartburn",
	"bacterial infection",
	"cough cold",
	"high blood pressure",
	"diabetes",
	"skin rash",
	"paracetamo",
	"antibiotic",
}

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Queries     []string
	Limit       int
	Mode        string
	Client      *http.Client
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	latencies     []time.Duration
	latenciesMu   sync.Mutex
	statusCodes   map[int]int64
	statusCodesMu sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 4096),
		statusCodes: make(map[int]int64),
	}
}

func (s *Stats) RecordRequest(duration time.Duration, statusCode int, err error) {
	s.totalRequests.Add(1)
	if err != nil {
		s.errorCount.Add(1)
		return
	}
	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}
	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()

	s.statusCodesMu.Lock()
	s.statusCodes[statusCode]++
	s.statusCodesMu.Unlock()
}

type Report struct {
	Total       int64
	Success     int64
	Errors      int64
	Duration    time.Duration
	Min         time.Duration
	Avg         time.Duration
	P50         time.Duration
	P90         time.Duration
	P95         time.Duration
	P99         time.Duration
	Max         time.Duration
	StdDev      time.Duration
	StatusCodes map[int]int64
}

func (r Report) RequestsPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Total) / r.Duration.Seconds()
}

func (r Report) ErrorRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Errors) / float64(r.Total) * 100
}

// Run sends searches from Concurrency workers until Duration elapses or
// ctx is cancelled.
func Run(ctx context.Context, cfg Config) (Report, error) {
	if len(cfg.Queries) == 0 {
		cfg.Queries = DefaultQueries
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return Report{}, fmt.Errorf("invalid base url: %w", err)
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        cfg.Concurrency * 2,
				MaxIdleConnsPerHost: cfg.Concurrency * 2,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()
	stats := NewStats()
	start := time.Now()

	var wg sync.WaitGroup
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := workerID; ctx.Err() == nil; i++ {
				target := searchURL(cfg, cfg.Queries[i%len(cfg.Queries)])
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
				if err != nil {
					stats.RecordRequest(0, 0, err)
					continue
				}
				t := time.Now()
				resp, err := client.Do(req)
				d := time.Since(t)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					stats.RecordRequest(d, 0, err)
					continue
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.RecordRequest(d, resp.StatusCode, nil)
			}
		}(w)
	}
	wg.Wait()
	return stats.Report(time.Since(start)), nil
}

func searchURL(cfg Config, query string) string {
	v := url.Values{}
	v.Set("q", query)
	v.Set("limit", fmt.Sprint(cfg.Limit))
	if cfg.Mode != "" {
		v.Set("mode", cfg.Mode)
	}
	return cfg.BaseURL + "/api/v1/search?" + v.Encode()
}

// Report summarises what has been recorded so far.
func (s *Stats) Report(elapsed time.Duration) Report {
	r := Report{
		Total:       s.totalRequests.Load(),
		Success:     s.successCount.Load(),
		Errors:      s.errorCount.Load(),
		Duration:    elapsed,
		StatusCodes: make(map[int]int64),
	}
	s.statusCodesMu.Lock()
	for code, n := range s.statusCodes {
		r.StatusCodes[code] = n
	}
	s.statusCodesMu.Unlock()

	s.latenciesMu.Lock()
	latencies := make([]time.Duration, len(s.latencies))
	copy(latencies, s.latencies)
	s.latenciesMu.Unlock()
	if len(latencies) == 0 {
		return r
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	r.Avg = sum / time.Duration(len(latencies))
	r.Min = latencies[0]
	r.Max = latencies[len(latencies)-1]
	r.P50 = percentile(latencies, 50)
	r.P90 = percentile(latencies, 90)
	r.P95 = percentile(latencies, 95)
	r.P99 = percentile(latencies, 99)

	var sumSquared float64
	avg := float64(r.Avg)
	for _, l := range latencies {
		diff := float64(l) - avg
		sumSquared += diff * diff
	}
	r.StdDev = time.Duration(math.Sqrt(sumSquared / float64(len(latencies))))
	return r
}

// Print writes a human-readable summary.
func (r Report) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", r.Total)
	fmt.Fprintf(w, "Successful:      %d\n", r.Success)
	fmt.Fprintf(w, "Errors:          %d\n", r.Errors)
	fmt.Fprintf(w, "Error Rate:      %.2f%%\n", r.ErrorRate())
	fmt.Fprintf(w, "Requests/sec:    %.2f\n", r.RequestsPerSecond())
	if r.Success > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", r.Min)
		fmt.Fprintf(w, "Avg:    %s\n", r.Avg)
		fmt.Fprintf(w, "P50:    %s\n", r.P50)
		fmt.Fprintf(w, "P90:    %s\n", r.P90)
		fmt.Fprintf(w, "P95:    %s\n", r.P95)
		fmt.Fprintf(w, "P99:    %s\n", r.P99)
		fmt.Fprintf(w, "Max:    %s\n", r.Max)
		fmt.Fprintf(w, "StdDev: %s\n", r.StdDev)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	codes := make([]int, 0, len(r.StatusCodes))
	for code := range r.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, r.StatusCodes[code])
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
