package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/cmdb-registry-server/internal/api"
	"github.com/stacklok/cmdb-registry-server/internal/app/storage"
	"github.com/stacklok/cmdb-registry-server/internal/config"
	"github.com/stacklok/cmdb-registry-server/internal/lock"
	"github.com/stacklok/cmdb-registry-server/internal/service"
	"github.com/stacklok/cmdb-registry-server/internal/service/cmdb"
	"github.com/stacklok/cmdb-registry-server/internal/telemetry"
)

const (
	defaultHTTPAddress    = ":8080"
	defaultRequestTimeout = 30 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 35 * time.Second
	defaultIdleTimeout    = 60 * time.Second

	// StoreTracerName is the name used for the document store tracer
	StoreTracerName = "github.com/stacklok/cmdb-registry-server/store"
)

// RegistryAppOptions is a function that configures the registry app builder
type RegistryAppOptions func(*registryAppConfig) error

// registryAppConfig collects the options of NewRegistryApp.
// It supports dependency injection for testing while providing sensible defaults for production
type registryAppConfig struct {
	config *config.Config

	// Optional component overrides (primarily for testing)
	storageFactory storage.Factory
	lockService    lock.Service

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	// Telemetry components
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	metricsHandler http.Handler
}

func baseConfig(opts ...RegistryAppOptions) (*registryAppConfig, error) {
	cfg := &registryAppConfig{
		address:        defaultHTTPAddress,
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// NewRegistryApp wires the store, lock coordinator, registry service and
// HTTP server described by the options
func NewRegistryApp(
	ctx context.Context,
	opts ...RegistryAppOptions,
) (*RegistryApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}
	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	// Create storage factory (single decision point for the backends)
	if cfg.storageFactory == nil {
		var factoryOpts []storage.FactoryOption
		if cfg.tracerProvider != nil {
			factoryOpts = append(factoryOpts, storage.WithTracer(cfg.tracerProvider.Tracer(StoreTracerName)))
		}
		cfg.storageFactory, err = storage.NewStorageFactory(ctx, cfg.config, factoryOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage factory: %w", err)
		}
	}

	// Ensure cleanup happens on error
	var cleanupNeeded = true
	defer func() {
		if cleanupNeeded {
			cfg.storageFactory.Cleanup()
		}
	}()

	components, err := buildServiceComponents(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build service components: %w", err)
	}

	httpServer, err := buildHTTPServer(ctx, cfg, components.RegistryService)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	// Cleanup is now handled by the app, not in defer
	cleanupNeeded = false

	return &RegistryApp{
		config:     cfg.config,
		components: components,
		httpServer: httpServer,
		cleanup:    cfg.storageFactory.Cleanup,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares sets custom HTTP middlewares, replacing the defaults
func WithMiddlewares(mw ...func(http.Handler) http.Handler) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithRequestTimeout bounds the handling of a single request
func WithRequestTimeout(d time.Duration) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		if d <= 0 {
			return fmt.Errorf("request timeout must be positive")
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithStorageFactory allows injecting a custom storage factory (for testing)
func WithStorageFactory(f storage.Factory) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.storageFactory = f
		return nil
	}
}

// WithLockService overrides the lock backend chosen by the storage factory
func WithLockService(s lock.Service) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.lockService = s
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for HTTP,
// mutation and lock metrics
func WithMeterProvider(mp metric.MeterProvider) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider for request,
// service and store spans
func WithTracerProvider(tp trace.TracerProvider) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithMetricsHandler serves a Prometheus scrape handler on /metrics
func WithMetricsHandler(h http.Handler) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

// buildServiceComponents builds the store, the lock coordinator and the
// registry service on top of them
func buildServiceComponents(
	ctx context.Context,
	b *registryAppConfig,
) (*AppComponents, error) {
	slog.Info("Initializing service components")

	st, err := b.storageFactory.CreateStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	lockService := b.lockService
	if lockService == nil {
		lockService, err = b.storageFactory.CreateLockService(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create lock service: %w", err)
		}
	}

	lockMetrics, err := telemetry.NewLockMetrics(b.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create lock metrics: %w", err)
	}
	mutationMetrics, err := telemetry.NewMutationMetrics(b.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create mutation metrics: %w", err)
	}

	lockCfg := b.config.Lock
	coordinator := lock.NewCoordinator(lockService,
		lock.WithRootPath(lockCfg.GetRootPath()),
		lock.WithAcquireTimeout(lockCfg.GetAcquireTimeout()),
		lock.WithReleaseTimeout(lockCfg.GetReleaseTimeout()),
		lock.WithMetrics(lockMetrics),
	)

	svcOpts := []cmdb.Option{
		cmdb.WithStore(st),
		cmdb.WithCoordinator(coordinator),
		cmdb.WithMutationMetrics(mutationMetrics),
		cmdb.WithLockMetrics(lockMetrics),
	}
	if b.tracerProvider != nil {
		svcOpts = append(svcOpts, cmdb.WithTracer(b.tracerProvider.Tracer(cmdb.ServiceTracerName)))
	}

	svc, err := cmdb.New(svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry service: %w", err)
	}

	slog.Info("Service components initialized successfully",
		"store_type", b.config.Store.GetType(),
		"lock_type", lockCfg.GetType(),
		"lock_root", lockCfg.GetRootPath())

	return &AppComponents{
		RegistryService: svc,
		Store:           st,
		Coordinator:     coordinator,
	}, nil
}

// buildHTTPServer builds the HTTP server with router and middleware
//
//nolint:unparam // we prefer having a similar interface
func buildHTTPServer(
	_ context.Context,
	b *registryAppConfig,
	svc service.RegistryService,
) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	middlewares := b.middlewares
	if middlewares == nil {
		middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// Metrics and tracing come first so rejected and timed out requests are observed
	var observability []func(http.Handler) http.Handler
	if b.tracerProvider != nil {
		observability = append(observability, telemetry.TracingMiddleware(b.tracerProvider))
	}
	if b.meterProvider != nil {
		metricsMiddleware, err := telemetry.MetricsMiddleware(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
		}
		observability = append(observability, metricsMiddleware)
		slog.Info("HTTP metrics middleware enabled")
	}
	middlewares = append(observability, middlewares...)

	serverOpts := []api.ServerOption{api.WithMiddlewares(middlewares...)}
	if b.metricsHandler != nil {
		serverOpts = append(serverOpts, api.WithMetricsHandler(b.metricsHandler))
	}
	router := api.NewServer(svc, serverOpts...)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
