package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

const checkTimeout = 2 * time.Second

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Pinger is a dependency that can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthChecker handles health checks
type HealthChecker struct {
	docdb Pinger
	cache Pinger
}

// NewHealthChecker creates a new health checker. The document database is required
// for readiness; cache may be nil when the record cache is disabled.
func NewHealthChecker(docdb, cache Pinger) *HealthChecker {
	return &HealthChecker{
		docdb: docdb,
		cache: cache,
	}
}

// HealthHandler handles the /health endpoint
func (h *HealthChecker) HealthHandler(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	if !h.check(r.Context(), response.Checks, "docdb", h.docdb) {
		response.Status = "unhealthy"
	}
	if h.cache != nil && !h.check(r.Context(), response.Checks, "cache", h.cache) {
		response.Status = "unhealthy"
	}

	writeResponse(w, response, response.Status == "healthy")
}

// ReadyHandler handles the /ready endpoint. A missing cache does not block readiness.
func (h *HealthChecker) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ready",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	if h.docdb == nil || !h.check(r.Context(), response.Checks, "docdb", h.docdb) {
		response.Status = "not ready"
	}

	writeResponse(w, response, response.Status == "ready")
}

func (h *HealthChecker) check(ctx context.Context, checks map[string]string, name string, p Pinger) bool {
	if p == nil {
		checks[name] = "not configured"
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	// The endpoints are public; driver errors name hosts and topology.
	if err := p.Ping(ctx); err != nil {
		slog.WarnContext(ctx, "Health check failed", "dependency", name, "error", err)
		checks[name] = "failed"
		return false
	}
	checks[name] = "ok"
	return true
}

func writeResponse(w http.ResponseWriter, response HealthResponse, ok bool) {
	statusCode := http.StatusOK
	if !ok {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}
