package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/8adimka/data-uploader/internal/circuitbreaker"
	"github.com/8adimka/data-uploader/internal/errorsx"
	"github.com/8adimka/data-uploader/internal/httpx"
	"github.com/8adimka/data-uploader/internal/provision"
	"github.com/8adimka/data-uploader/internal/redisx"
)

// Provisioner creates a database if it is missing and reports whether it did.
type Provisioner interface {
	Provision(ctx context.Context, name string) (created bool, err error)
}

// RecordStore keeps the last provisioning outcome per database.
type RecordStore interface {
	Save(ctx context.Context, rec redisx.Record) error
	Load(ctx context.Context, name string) (redisx.Record, error)
}

// DatabaseResponse is the body of both database endpoints.
type DatabaseResponse struct {
	Name          string    `json:"name"`
	Created       bool      `json:"created"`
	ProvisionedAt time.Time `json:"provisionedAt"`
	RequestID     string    `json:"requestId,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// Server exposes database provisioning over HTTP.
type Server struct {
	provisioner Provisioner
	records     RecordStore
	breaker     *circuitbreaker.CircuitBreaker
	now         func() time.Time
}

// NewServer creates a Server. records may be nil when the record cache is disabled.
func NewServer(p Provisioner, records RecordStore, breaker *circuitbreaker.CircuitBreaker) *Server {
	return &Server{
		provisioner: p,
		records:     records,
		breaker:     breaker,
		now:         time.Now,
	}
}

// Register mounts the database routes on r.
func (s *Server) Register(r *mux.Router) {
	r.HandleFunc("/databases/{name}", s.handleProvision).Methods(http.MethodPost)
	r.HandleFunc("/databases/{name}", s.handleGet).Methods(http.MethodGet)
}

func (s *Server) handleProvision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := mux.Vars(r)["name"]
	requestID := httpx.RequestIDFromContext(ctx)

	created, err := circuitbreaker.Run(s.breaker, func() (bool, error) {
		return s.provisioner.Provision(ctx, name)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := DatabaseResponse{
		Name:          name,
		Created:       created,
		ProvisionedAt: s.now().UTC(),
		RequestID:     requestID,
	}

	if s.records != nil {
		rec := redisx.Record{Name: resp.Name, Created: resp.Created, ProvisionedAt: resp.ProvisionedAt, RequestID: requestID}
		if err := s.records.Save(ctx, rec); err != nil {
			slog.WarnContext(ctx, "Failed to cache provisioning record", "database", name, "error", err)
		}
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := mux.Vars(r)["name"]

	if s.records == nil {
		writeJSON(w, http.StatusNotImplemented, ErrorResponse{
			Error:     "not_implemented",
			Message:   "provisioning records are not cached",
			RequestID: httpx.RequestIDFromContext(ctx),
		})
		return
	}

	rec, err := s.records.Load(ctx, name)
	if errors.Is(err, redisx.ErrCacheMiss) {
		err = fmt.Errorf("%w: no provisioning record for %q", errorsx.ErrNotFound, name)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, DatabaseResponse{
		Name:          rec.Name,
		Created:       rec.Created,
		ProvisionedAt: rec.ProvisionedAt,
		RequestID:     rec.RequestID,
	})
}

// remoteProvisioner provisions through the document database and releases the
// connection once the outcome is known.
type remoteProvisioner struct {
	provisioner *provision.Provisioner
	endpoint    *string
	credential  *string
}

// NewProvisioner adapts p to the Provisioner interface for a fixed endpoint and credential.
func NewProvisioner(p *provision.Provisioner, endpoint, credential *string) Provisioner {
	return &remoteProvisioner{provisioner: p, endpoint: endpoint, credential: credential}
}

func (rp *remoteProvisioner) Provision(ctx context.Context, name string) (bool, error) {
	h, err := rp.provisioner.ProvisionDatabase(ctx, rp.endpoint, rp.credential, name)
	if err != nil {
		return false, err
	}
	if err := h.Close(context.WithoutCancel(ctx)); err != nil {
		slog.DebugContext(ctx, "Failed to close provisioning connection", "database", name, "error", err)
	}
	return h.Created, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorsx.HTTPStatus(err)
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		status = http.StatusServiceUnavailable
	}
	if errors.Is(err, context.Canceled) {
		// The client is gone; nobody reads this.
		status = 499
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Provisioning request failed", "path", r.URL.Path, "status", status, "error", err)
	}

	writeJSON(w, status, ErrorResponse{
		Error:     errorCode(status),
		Message:   err.Error(),
		RequestID: httpx.RequestIDFromContext(r.Context()),
	})
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_input"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusBadGateway:
		return "service_error"
	case http.StatusServiceUnavailable:
		return "unavailable"
	case http.StatusGatewayTimeout:
		return "timeout"
	case 499:
		return "cancelled"
	default:
		return "internal"
	}
}
