package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/logger"
)

// StartServer exposes /metrics on a dedicated port, keeping scrapes off the
// search listener. The returned func stops it.
func (m *Metrics) StartServer(port int) (shutdown func(context.Context) error) {
	log := logger.WithComponent("metrics")
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/metrics", http.StatusFound)
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	go func() {
		log.Info("metrics listener started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics listener failed", "error", err)
		}
	}()
	return srv.Shutdown
}
