package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// UnmatchedRoute labels requests that no registered route matched.
const UnmatchedRoute = "unmatched"

// Provisioning outcomes recorded on provision_requests_total.
const (
	OutcomeCreated         = "created"
	OutcomeExisting        = "existing"
	OutcomeConnectionError = "connection_error"
	OutcomeServiceError    = "service_error"
	OutcomeRateLimited     = "rate_limited"
	OutcomeCancelled       = "cancelled"
)

// Metrics holds all application metrics
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	provisionRequestsTotal metric.Int64Counter
	provisionDuration      metric.Float64Histogram
	rateLimitRetriesTotal  metric.Int64Counter
}

// NewMetrics creates and initializes all metrics
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	httpRequestsTotal, err := meter.Int64Counter(
		"http_server_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	httpRequestDuration, err := meter.Float64Histogram(
		"http_server_latency_ms",
		metric.WithDescription("HTTP request latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	provisionRequestsTotal, err := meter.Int64Counter(
		"provision_requests_total",
		metric.WithDescription("Database provisioning calls by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	provisionDuration, err := meter.Float64Histogram(
		"provision_duration_ms",
		metric.WithDescription("Database provisioning latency in milliseconds, retries included"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000),
	)
	if err != nil {
		return nil, err
	}

	rateLimitRetriesTotal, err := meter.Int64Counter(
		"provision_rate_limit_retries_total",
		metric.WithDescription("Retries issued after the document database throttled a request"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		httpRequestsTotal:      httpRequestsTotal,
		httpRequestDuration:    httpRequestDuration,
		provisionRequestsTotal: provisionRequestsTotal,
		provisionDuration:      provisionDuration,
		rateLimitRetriesTotal:  rateLimitRetriesTotal,
	}, nil
}

// HTTPMetricsMiddleware returns middleware for collecting HTTP metrics. Requests are
// labeled with the matched mux route template, never the raw path.
func (m *Metrics) HTTPMetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			durationMs := float64(time.Since(start).Nanoseconds()) / 1e6
			attrs := metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("path", routeTemplate(r)),
				attribute.String("status_code", strconv.Itoa(rw.statusCode)),
			)

			m.httpRequestsTotal.Add(r.Context(), 1, attrs)
			m.httpRequestDuration.Record(r.Context(), durationMs, attrs)
		})
	}
}

func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return UnmatchedRoute
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return UnmatchedRoute
	}
	return tpl
}

// RecordProvision records one provisioning call by outcome. Database names are
// caller supplied and stay out of the labels. Safe on a nil receiver.
func (m *Metrics) RecordProvision(ctx context.Context, outcome string, duration time.Duration) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.provisionRequestsTotal.Add(ctx, 1, attrs)
	m.provisionDuration.Record(ctx, float64(duration.Nanoseconds())/1e6, attrs)
}

// RecordRateLimitRetry records a retry after throttling. Safe on a nil receiver.
func (m *Metrics) RecordRateLimitRetry(ctx context.Context, attempt int) {
	if m == nil {
		return
	}

	m.rateLimitRetriesTotal.Add(ctx, 1, metric.WithAttributes(attribute.Int("attempt", attempt)))
}

// responseWriter captures the status code for metrics
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
