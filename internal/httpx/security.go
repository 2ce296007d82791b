package httpx

import (
	"net/http"
)

// SecurityMiddleware rate limits per client IP, then checks the API key.
type SecurityMiddleware struct {
	auth      *APIKeyAuth
	rateLimit *RateLimiter
}

// SecurityConfig holds configuration for security middleware
type SecurityConfig struct {
	APIKey         string
	RateLimitRPS   float64
	RateLimitBurst int

	// TrustProxyHeaders keys rate limiting on forwarding headers instead of RemoteAddr.
	TrustProxyHeaders bool
}

// NewSecurityMiddleware creates a new consolidated security middleware
func NewSecurityMiddleware(cfg SecurityConfig) *SecurityMiddleware {
	return &SecurityMiddleware{
		auth:      NewAPIKeyAuth(cfg.APIKey),
		rateLimit: NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, WithProxyHeaders(cfg.TrustProxyHeaders)),
	}
}

// Middleware applies rate limiting first so unauthenticated floods are throttled too.
func (s *SecurityMiddleware) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return s.rateLimit.Middleware()(s.auth.Middleware()(next))
	}
}
