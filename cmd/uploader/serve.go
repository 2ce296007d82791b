package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/8adimka/data-uploader/internal/api"
	"github.com/8adimka/data-uploader/internal/circuitbreaker"
	"github.com/8adimka/data-uploader/internal/config"
	"github.com/8adimka/data-uploader/internal/errorsx"
	"github.com/8adimka/data-uploader/internal/health"
	"github.com/8adimka/data-uploader/internal/httpx"
	"github.com/8adimka/data-uploader/internal/metrics"
	"github.com/8adimka/data-uploader/internal/otel"
	"github.com/8adimka/data-uploader/internal/provision"
	"github.com/8adimka/data-uploader/internal/redisx"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Provision the default database and serve the provisioning API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg())
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	shutdownOtel, err := otel.InitOpenTelemetry(ctx, serviceName, version)
	if err != nil {
		return fmt.Errorf("initialize OpenTelemetry: %w", err)
	}
	defer shutdownOtel(context.WithoutCancel(ctx))

	appMetrics, err := metrics.NewMetrics(otel.GetMeter())
	if err != nil {
		return fmt.Errorf("initialize metrics: %w", err)
	}

	provisioner := provision.New(
		provision.WithPolicy(cfg.ClientPolicy()),
		provision.WithMetrics(appMetrics),
	)

	// The default database backs readiness; failing here keeps a misconfigured
	// instance from ever reporting ready.
	handle, err := provisioner.ProvisionDatabase(ctx, cfg.DocDBEndpoint, cfg.DocDBKey, cfg.DocDBDatabase)
	if err != nil {
		return fmt.Errorf("provision default database %q: %w", cfg.DocDBDatabase, err)
	}
	defer func() {
		if err := handle.Close(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("Failed to disconnect from the document database", "error", err)
		}
	}()

	var records api.RecordStore
	var cachePinger health.Pinger
	if cfg.RedisAddr != "" {
		client, err := redisx.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer client.Close()

		store := redisx.NewRecordStore(redisx.NewCache(client, cfg.RecordTTL()))
		records = store
		cachePinger = store
	} else {
		slog.Info("REDIS_ADDR is not set, provisioning records are not cached")
	}

	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
		Name:      "docdb",
		IsFailure: errorsx.IsConnection,
	})

	router := newRouter(routerConfig{
		health:  health.NewHealthChecker(handle, cachePinger),
		api:     api.NewServer(api.NewProvisioner(provisioner, cfg.DocDBEndpoint, cfg.DocDBKey), records, breaker),
		metrics: appMetrics,
		security: httpx.SecurityConfig{
			APIKey:            cfg.APIKey,
			RateLimitRPS:      cfg.RateLimitRPS,
			RateLimitBurst:    cfg.RateLimitBurst,
			TrustProxyHeaders: cfg.TrustProxyHeaders,
		},
	})

	// WriteTimeout leaves room for a provisioning call that spends its whole
	// throttling retry budget.
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Starting the server...", "addr", cfg.HTTPAddr, "database", cfg.DocDBDatabase)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return err
	}

	slog.Info("Server exited")
	return nil
}

type routerConfig struct {
	health   *health.HealthChecker
	api      *api.Server
	metrics  *metrics.Metrics
	security httpx.SecurityConfig
}

func newRouter(cfg routerConfig) *mux.Router {
	router := mux.NewRouter()
	router.Use(
		httpx.RequestID(),
		httpx.OTelMiddleware(),
		httpx.Logger(),
		cfg.metrics.HTTPMetricsMiddleware(),
		httpx.Recovery(),
	)

	router.HandleFunc("/health", cfg.health.HealthHandler).Methods(http.MethodGet)
	router.HandleFunc("/ready", cfg.health.ReadyHandler).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := router.PathPrefix("/v1").Subrouter()
	v1.Use(httpx.NewSecurityMiddleware(cfg.security).Middleware())
	cfg.api.Register(v1)

	return router
}
