package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/logger"
)

// SnapshotSource returns the most recent persisted stats, or nil when none
// have been saved.
type SnapshotSource interface {
	LatestSnapshot(ctx context.Context) (*AggregatedStats, error)
}

type Handler struct {
	aggregator *Aggregator
	snapshots  SnapshotSource
	logger     *slog.Logger
}

// NewHandler serves live stats from aggregator. snapshots may be nil.
func NewHandler(aggregator *Aggregator, snapshots SnapshotSource) *Handler {
	return &Handler{
		aggregator: aggregator,
		snapshots:  snapshots,
		logger:     logger.WithComponent("analytics-handler"),
	}
}

// Stats serves GET /api/v1/analytics. With ?source=snapshot it returns the
// last persisted snapshot instead of the in-memory aggregate, which
// survives restarts.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("source") {
	case "", "live":
		h.write(w, http.StatusOK, h.aggregator.Stats())
	case "snapshot":
		if h.snapshots == nil {
			h.write(w, http.StatusServiceUnavailable, map[string]string{"error": "snapshots are not enabled"})
			return
		}
		stats, err := h.snapshots.LatestSnapshot(r.Context())
		if err != nil {
			logger.FromContext(r.Context()).Error("loading analytics snapshot", "error", err)
			h.write(w, http.StatusInternalServerError, map[string]string{"error": "loading snapshot failed"})
			return
		}
		if stats == nil {
			h.write(w, http.StatusNotFound, map[string]string{"error": "no snapshot saved yet"})
			return
		}
		h.write(w, http.StatusOK, stats)
	default:
		h.write(w, http.StatusBadRequest, map[string]string{"error": "source must be live or snapshot"})
	}
}

func (h *Handler) write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
