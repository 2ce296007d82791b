package httpx

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// APIKeyAuth provides API key authentication middleware
type APIKeyAuth struct {
	apiKey string
}

// NewAPIKeyAuth creates a new API key authentication middleware
func NewAPIKeyAuth(apiKey string) *APIKeyAuth {
	return &APIKeyAuth{
		apiKey: apiKey,
	}
}

// Middleware checks the X-API-Key header. An empty configured key disables the check.
func (a *APIKeyAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a.apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			providedKey := r.Header.Get("X-API-Key")
			if providedKey == "" {
				slog.WarnContext(r.Context(), "API key missing",
					"ip", RemoteIP(r),
					"method", r.Method,
					"path", r.URL.Path,
				)
				unauthorized(w, "API key required")
				return
			}

			if !ConstantTimeCompare(providedKey, a.apiKey) {
				slog.WarnContext(r.Context(), "Invalid API key",
					"ip", RemoteIP(r),
					"method", r.Method,
					"path", r.URL.Path,
				)
				unauthorized(w, "Invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ConstantTimeCompare compares two secrets without leaking where they differ.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// unauthorized sends a 401 Unauthorized response
func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "API-Key")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized","message":"` + message + `"}`))
}
