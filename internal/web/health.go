package web

import (
	"net/http"

	"github.com/zadachnik/mathbot/internal/corpus"
	"github.com/zadachnik/mathbot/internal/log"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store  *corpus.Store
	logger log.Logger
}

// NewHealthHandler creates a new health handler.
// store is the loaded corpus used for readiness checks.
func NewHealthHandler(store *corpus.Store, logger log.Logger) *HealthHandler {
	return &HealthHandler{store: store, logger: logger}
}

// RegisterRoutes registers health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

// liveness is a liveness probe endpoint.
// Returns 200 OK if the process is alive.
func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness is a readiness probe endpoint.
// Returns 200 OK once the corpus is loaded; the server only starts after
// loading, so this mostly guards misconfigured wiring.
func (h *HealthHandler) readiness(w http.ResponseWriter, _ *http.Request) {
	if h.store == nil {
		h.logger.Error("readiness check failed: corpus not loaded")
		http.Error(w, "corpus not loaded", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
