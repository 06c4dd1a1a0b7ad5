package monitoring

import (
	"fmt"
	"net/http"
	"time"
)

// SnapshotSource renders the engine's current read-only snapshot
type SnapshotSource interface {
	SnapshotJSON() ([]byte, error)
}

// SnapshotHandler serves the engine snapshot as JSON
func SnapshotHandler(src SnapshotSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := src.SnapshotJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})
}

// NewServer wires /metrics, /health and /snapshot onto one HTTP server
func NewServer(port int, health *HealthChecker, src SnapshotSource) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler())
	mux.Handle("/health", health)
	mux.Handle("/snapshot", SnapshotHandler(src))

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
