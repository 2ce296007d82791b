package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/8adimka/data-uploader/internal/docstore"
	"github.com/8adimka/data-uploader/internal/errorsx"
	"github.com/8adimka/data-uploader/internal/logging"
	"github.com/8adimka/data-uploader/internal/metrics"
	"github.com/8adimka/data-uploader/internal/otel"
	"github.com/8adimka/data-uploader/internal/retry"
)

// Provisioner opens document database connections and makes sure a named database
// exists. It holds no connection state; every call builds its own client.
type Provisioner struct {
	policy  docstore.ClientPolicy
	metrics *metrics.Metrics
	tracer  trace.Tracer
	logger  *logging.SecureLogger
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithPolicy replaces the default client policy.
func WithPolicy(policy docstore.ClientPolicy) Option {
	return func(p *Provisioner) { p.policy = policy }
}

// WithMetrics records provisioning outcomes and throttling retries.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Provisioner) { p.metrics = m }
}

// WithTracer replaces the global tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Provisioner) { p.tracer = tracer }
}

// WithLogger replaces the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provisioner) { p.logger = logging.NewSecureLogger(logger) }
}

// New creates a Provisioner using docstore.DefaultClientPolicy unless overridden.
func New(opts ...Option) *Provisioner {
	p := &Provisioner{
		policy: docstore.DefaultClientPolicy(),
		tracer: otel.GetTracer(),
		logger: logging.NewSecureLogger(nil),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Policy returns the client policy connections are built with.
func (p *Provisioner) Policy() docstore.ClientPolicy {
	return p.policy
}

// ProvisionDatabase provisions databaseName with the default policy.
func ProvisionDatabase(ctx context.Context, endpoint, credential *string, databaseName string) (*Handle, error) {
	return New().ProvisionDatabase(ctx, endpoint, credential, databaseName)
}

// ProvisionDatabase connects to endpoint with credential and creates databaseName if
// it does not exist yet. Failures are *errorsx.ConnectionError or *errorsx.ServiceError
// wrapping the driver error. On success the caller owns the returned handle's connection.
func (p *Provisioner) ProvisionDatabase(ctx context.Context, endpoint, credential *string, databaseName string) (*Handle, error) {
	start := time.Now()
	label := docstore.EndpointLabel(endpoint)

	ctx, span := p.tracer.Start(ctx, "provision.database",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "mongodb"),
			attribute.String("db.name", databaseName),
		),
	)
	defer span.End()

	client, err := docstore.Connect(ctx, endpoint, credential, p.policy)
	if err != nil {
		p.finish(ctx, span, databaseName, label, start, false, err)
		return nil, err
	}

	created, err := p.ensureDatabase(ctx, client, client.Database(databaseName).Collection(BootstrapCollection), label, databaseName)
	if err != nil {
		if dErr := client.Disconnect(context.WithoutCancel(ctx)); dErr != nil {
			slog.DebugContext(ctx, "Failed to disconnect after provisioning error", "error", dErr)
		}
		p.finish(ctx, span, databaseName, label, start, false, err)
		return nil, err
	}

	p.finish(ctx, span, databaseName, label, start, created, nil)
	return &Handle{
		Database: client.Database(databaseName),
		Created:  created,
		policy:   p.policy,
	}, nil
}

// ensureDatabase issues the create-if-absent request, retrying only throttled attempts.
func (p *Provisioner) ensureDatabase(ctx context.Context, lister databaseLister, markers markerInserter, endpoint, name string) (bool, error) {
	if name == "" {
		return false, &errorsx.ServiceError{
			Database: name,
			Err:      fmt.Errorf("%w: database name must not be empty", errorsx.ErrInvalidInput),
		}
	}

	config := retry.ConfigFromPolicy(p.policy)
	config.OnRetry = func(attempt int, _ time.Duration, _ error) {
		p.metrics.RecordRateLimitRetry(ctx, attempt)
	}

	created, err := retry.RetryWithResult(ctx, config, func() (bool, error) {
		return createIfNotExists(ctx, lister, markers, name)
	})
	if err == nil {
		return created, nil
	}

	if errors.Is(err, retry.ErrRetriesExhausted) && docstore.IsRateLimited(err) {
		return false, &errorsx.ServiceError{
			Database: name,
			Err:      fmt.Errorf("%w: %w", errorsx.ErrRateLimited, err),
		}
	}
	return false, docstore.Classify(err, endpoint, name)
}

func (p *Provisioner) finish(ctx context.Context, span trace.Span, database, endpoint string, start time.Time, created bool, err error) {
	duration := time.Since(start)
	outcome := outcomeOf(created, err)
	p.metrics.RecordProvision(ctx, outcome, duration)
	span.SetAttributes(attribute.String("provision.outcome", outcome))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		p.logger.ErrorContext(ctx, "Database provisioning failed",
			"database", database,
			"endpoint", endpoint,
			"outcome", outcome,
			"duration", duration,
			"error", err)
		return
	}

	p.logger.InfoContext(ctx, "Database provisioned",
		"database", database,
		"endpoint", endpoint,
		"created", created,
		"policy", p.policy.String(),
		"duration", duration)
}

func outcomeOf(created bool, err error) string {
	switch {
	case err == nil && created:
		return metrics.OutcomeCreated
	case err == nil:
		return metrics.OutcomeExisting
	case errors.Is(err, context.Canceled):
		return metrics.OutcomeCancelled
	case errorsx.IsRateLimited(err):
		return metrics.OutcomeRateLimited
	case errorsx.IsConnection(err):
		return metrics.OutcomeConnectionError
	default:
		return metrics.OutcomeServiceError
	}
}
