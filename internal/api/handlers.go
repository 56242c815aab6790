package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"blogflow/backend/pkg/models"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Pinger checks a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains the plain net/http handlers that sit outside /api/v1.
type Handler struct {
	db Pinger
}

// NewHandler creates a new Handler with required dependencies
func NewHandler(db Pinger) *Handler {
	return &Handler{db: db}
}

// HandleHealth reports service health. The database check degrades the
// status without failing the probe.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Service:   "blogflow",
		Version:   Version,
		Checks:    map[string]string{},
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Checks["database"] = err.Error()
		} else {
			status.Checks["database"] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, status)
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log error but can't change response at this point
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// writeProblem writes an RFC 7807 Problem Details JSON error response
func writeProblem(w http.ResponseWriter, problem models.ProblemDetails) {
	if problem.Type == "" {
		problem.Type = "about:blank"
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	_ = json.NewEncoder(w).Encode(problem)
}
