package httpx_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/8adimka/data-uploader/internal/httpx"
)

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		provided   string
		wantCode   int
	}{
		{name: "valid key", configured: "secret-key-123", provided: "secret-key-123", wantCode: http.StatusOK},
		{name: "missing key", configured: "secret-key-123", wantCode: http.StatusUnauthorized},
		{name: "wrong key", configured: "secret-key-123", provided: "wrong-key", wantCode: http.StatusUnauthorized},
		{name: "prefix of key", configured: "secret-key-123", provided: "secret", wantCode: http.StatusUnauthorized},
		{name: "auth disabled", configured: "", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := httpx.NewAPIKeyAuth(tt.configured).Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/v1/databases/db1", nil)
			if tt.provided != "" {
				req.Header.Set("X-API-Key", tt.provided)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("Expected status %d, got %d", tt.wantCode, rec.Code)
			}
			if tt.wantCode == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") != "API-Key" {
				t.Error("Expected WWW-Authenticate header")
			}
		})
	}
}

func TestSecurityMiddleware_RateLimitsBeforeAuth(t *testing.T) {
	handler := httpx.NewSecurityMiddleware(httpx.SecurityConfig{
		APIKey:         "secret",
		RateLimitRPS:   1,
		RateLimitBurst: 1,
	}).Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/databases/db1", nil)
		req.RemoteAddr = "10.1.1.1:1000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusUnauthorized || codes[1] != http.StatusTooManyRequests {
		t.Errorf("Expected 401 then 429, got %v", codes)
	}
}

func TestSecurityMiddleware_RotatingForwardedForKeepsLimit(t *testing.T) {
	handler := httpx.NewSecurityMiddleware(httpx.SecurityConfig{
		APIKey:         "secret",
		RateLimitRPS:   0.1,
		RateLimitBurst: 1,
	}).Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	counts := map[int]int{}
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/databases/junk%d", i), nil)
		req.RemoteAddr = "10.1.1.1:1000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		counts[rec.Code]++
	}

	if counts[http.StatusTooManyRequests] != 49 || counts[http.StatusUnauthorized] != 1 {
		t.Errorf("Expected 1 unauthorized then 49 rate limited, got %v", counts)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := httpx.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = httpx.RequestIDFromContext(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if _, err := uuid.Parse(seen); err != nil {
			t.Errorf("Expected a UUID request id, got %q", seen)
		}
		if rec.Header().Get(httpx.RequestIDHeader) != seen {
			t.Error("Expected the request id to be echoed on the response")
		}
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(httpx.RequestIDHeader, "upstream-42")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if seen != "upstream-42" {
			t.Errorf("Expected upstream request id, got %q", seen)
		}
	})
}

func TestRecovery(t *testing.T) {
	handler := httpx.Recovery()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rec.Code)
	}
}

func TestLogger_PassesThroughStatus(t *testing.T) {
	handler := httpx.Logger()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/databases/db1", nil))

	if rec.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rec.Code)
	}
}

func TestConstantTimeCompare(t *testing.T) {
	if !httpx.ConstantTimeCompare("abc", "abc") {
		t.Error("Expected equal strings to match")
	}
	if httpx.ConstantTimeCompare("abc", "abd") || httpx.ConstantTimeCompare("abc", "ab") {
		t.Error("Expected different strings not to match")
	}
}
