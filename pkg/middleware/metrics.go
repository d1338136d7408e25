// Package middleware provides the HTTP middleware wrapped around the search
// API: request IDs, Prometheus metrics, CORS, rate limiting and request
// timeouts.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/metrics"
)

// Metrics records request count, latency and in-flight requests, labelled
// by method, route and status.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)

			route := routeLabel(r.URL.Path)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.code())).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	if sw.status == 0 {
		sw.status = code
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	return sw.ResponseWriter.Write(b)
}

func (sw *statusWriter) code() int {
	if sw.status == 0 {
		return http.StatusOK
	}
	return sw.status
}

// routeLabel keeps the label set bounded. Known prefixes pass through with
// numeric segments collapsed to {id}; anything else is "other".
func routeLabel(path string) string {
	if !strings.HasPrefix(path, "/api/v1/") && !strings.HasPrefix(path, "/health/") && path != "/metrics" {
		return "other"
	}
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if _, err := strconv.Atoi(s); err == nil {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}
