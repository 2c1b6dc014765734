package handler

import (
	"context"
	"net/http"
	"time"
)

// DatabasePinger defines the interface for checking database connectivity
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// okResponse is the body of both probe endpoints.
type okResponse struct {
	OK bool `json:"ok"`
}

// Health handles GET /health. It reports that the process is up and nothing
// more; readiness is the stronger probe.
func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, okResponse{OK: true}, http.StatusOK)
}

// ReadyHandler handles readiness probes backed by the database pool.
type ReadyHandler struct {
	db DatabasePinger
}

// NewReadyHandler creates a new readiness handler
func NewReadyHandler(db DatabasePinger) *ReadyHandler {
	return &ReadyHandler{db: db}
}

// Ready handles GET /ready. The service is ready when the database answers a
// ping within two seconds.
func (h *ReadyHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		respondJSON(w, ErrorResponse{Error: "NOT_READY", Message: "database not ready"}, http.StatusServiceUnavailable)
		return
	}

	respondJSON(w, okResponse{OK: true}, http.StatusOK)
}
