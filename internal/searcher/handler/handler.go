// Package handler exposes the search engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/searcher/fusion"
	apperrors "github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/middleware"
)

type Searcher interface {
	Do(ctx context.Context, req fusion.Request) (*fusion.Response, error)
	Config() fusion.Config
	Generation() uint64
}

type Indexer interface {
	Build(ctx context.Context) (*indexer.BuildStats, error)
	LastBuild() *indexer.BuildStats
	Corpus() *corpus.Corpus
}

type Tracker interface {
	Track(rec analytics.QueryLogRecord)
}

type Hit struct {
	Rank     int              `json:"rank"`
	DocID    int              `json:"doc_id"`
	Score    float64          `json:"score"`
	Lexical  float64          `json:"lexical,omitempty"`
	Semantic float64          `json:"semantic,omitempty"`
	Document *corpus.Document `json:"document,omitempty"`
}

type SearchResponse struct {
	Query           string            `json:"query"`
	CorrectedQuery  string            `json:"corrected_query,omitempty"`
	Provenance      fusion.Provenance `json:"provenance"`
	Degraded        bool              `json:"degraded"`
	IndexGeneration uint64            `json:"index_generation"`
	CacheHit        bool              `json:"cache_hit"`
	TookMs          int64             `json:"took_ms"`
	Timings         map[string]int64  `json:"timings_us,omitempty"`
	Results         []Hit             `json:"results"`
}

type Handler struct {
	searcher   Searcher
	indexer    Indexer
	cache      *cache.QueryCache
	tracker    Tracker
	maxResults int
	logger     *slog.Logger
}

// New builds a handler. queryCache and tracker may be nil.
func New(s Searcher, idx Indexer, queryCache *cache.QueryCache, tracker Tracker, maxResults int) *Handler {
	if maxResults <= 0 {
		maxResults = 100
	}
	return &Handler{
		searcher:   s,
		indexer:    idx,
		cache:      queryCache,
		tracker:    tracker,
		maxResults: maxResults,
		logger:     logger.WithComponent("search-handler"),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.Document)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("POST /api/v1/index/rebuild", h.Rebuild)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Search serves GET /api/v1/search?q=...&limit=&mode=&alpha=. A blank q is
// a valid query with no results; a missing q is a client error.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)
	params := r.URL.Query()

	if !params.Has("q") {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	req, err := h.parseRequest(params.Get("q"), params.Get("limit"), params.Get("mode"), params.Get("alpha"))
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}

	key := cache.Key{
		Query:      req.Query,
		Limit:      req.Limit,
		Mode:       req.Mode,
		Alpha:      *req.Alpha,
		Generation: h.searcher.Generation(),
	}
	var resp *fusion.Response
	cacheHit := false
	if h.cache != nil {
		resp, cacheHit, err = h.cache.GetOrCompute(ctx, key, func() (*fusion.Response, error) {
			return h.searcher.Do(ctx, req)
		})
	} else {
		resp, err = h.searcher.Do(ctx, req)
	}
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		log.Error("search failed", "query", req.Query, "error", err)
		h.writeError(w, status, "search failed: "+err.Error())
		return
	}

	took := time.Since(start)
	log.Info("search completed",
		"query", req.Query,
		"provenance", resp.Provenance,
		"corrected_query", resp.CorrectedQuery,
		"degraded", resp.Degraded,
		"returned", len(resp.Results),
		"cache_hit", cacheHit,
		"latency_ms", took.Milliseconds(),
	)
	if h.tracker != nil {
		h.tracker.Track(analytics.NewRecord(resp, middleware.GetRequestID(ctx), took, cacheHit))
	}
	h.writeJSON(w, http.StatusOK, h.render(resp, cacheHit, took))
}

func (h *Handler) parseRequest(q, limitStr, modeStr, alphaStr string) (fusion.Request, error) {
	cfg := h.searcher.Config()
	req := fusion.Request{Query: q, Limit: cfg.TopK, Mode: cfg.Mode}
	if limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			return req, apperrors.Invalid("limit must be a positive integer")
		}
		req.Limit = min(limit, h.maxResults)
	}
	if modeStr != "" {
		switch m := fusion.Mode(modeStr); m {
		case fusion.ModeFallback, fusion.ModeHybrid:
			req.Mode = m
		default:
			return req, apperrors.Invalid("mode must be %q or %q", fusion.ModeFallback, fusion.ModeHybrid)
		}
	}
	alpha := cfg.Alpha
	if alphaStr != "" {
		a, err := strconv.ParseFloat(alphaStr, 64)
		if err != nil {
			return req, apperrors.Invalid("alpha must be a number")
		}
		alpha = a
	}
	if req.Mode != fusion.ModeHybrid {
		alpha = 0
	}
	req.Alpha = &alpha
	return req, nil
}

func (h *Handler) render(resp *fusion.Response, cacheHit bool, took time.Duration) SearchResponse {
	out := SearchResponse{
		Query:           resp.Query,
		CorrectedQuery:  resp.CorrectedQuery,
		Provenance:      resp.Provenance,
		Degraded:        resp.Degraded,
		IndexGeneration: resp.IndexGen,
		CacheHit:        cacheHit,
		TookMs:          took.Milliseconds(),
		Timings:         resp.Timings,
		Results:         make([]Hit, len(resp.Results)),
	}
	c := h.indexer.Corpus()
	for i, res := range resp.Results {
		hit := Hit{Rank: i + 1, DocID: res.DocID, Score: res.Score, Lexical: res.Lexical, Semantic: res.Semantic}
		if c != nil {
			if doc, ok := c.Get(res.DocID); ok {
				hit.Document = &doc
			}
		}
		out.Results[i] = hit
	}
	return out
}

func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "document id must be an integer")
		return
	}
	c := h.indexer.Corpus()
	if c == nil {
		h.writeError(w, http.StatusServiceUnavailable, "index not built")
		return
	}
	doc, ok := c.Get(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("document %d not found", id))
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	stats := h.indexer.LastBuild()
	if stats == nil {
		h.writeError(w, http.StatusServiceUnavailable, "index not built")
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	stats, err := h.indexer.Build(r.Context())
	if err != nil {
		h.logger.Error("index rebuild failed", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "index rebuild failed: "+err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
