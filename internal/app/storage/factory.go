// Package storage provides factory functions for creating storage-dependent components.
// It is the single decision point choosing the document store and lock backends,
// and it owns the shared PostgreSQL pool used by either of them.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/cmdb-registry-server/internal/config"
	"github.com/stacklok/cmdb-registry-server/internal/db"
	"github.com/stacklok/cmdb-registry-server/internal/lock"
	"github.com/stacklok/cmdb-registry-server/internal/store"
)

//go:generate mockgen -destination=mocks/mock_factory.go -package=mocks -source=factory.go Factory

// Factory creates the store and lock service as a family.
//
// It also manages the lifecycle of storage resources (e.g., database connections).
type Factory interface {
	// CreateStore creates the document store holding schemas and entities,
	// wrapped with the configured request timeout and schema cache
	CreateStore(ctx context.Context) (store.Store, error)

	// CreateLockService creates the lock backend serializing mutations
	CreateLockService(ctx context.Context) (lock.Service, error)

	// Cleanup releases any resources held by this factory.
	// Should be called when the application shuts down.
	Cleanup()
}

// BackendFactory builds the backends named by the configuration
type BackendFactory struct {
	config *config.Config
	pool   *pgxpool.Pool
	tracer trace.Tracer

	// closers are created backends holding resources of their own
	closers []io.Closer
}

var _ Factory = (*BackendFactory)(nil)

// FactoryOption is a functional option for configuring the BackendFactory
type FactoryOption func(*BackendFactory)

// WithTracer sets the OpenTelemetry tracer for the store clients.
// If not set, tracing will be disabled (no-op).
func WithTracer(tracer trace.Tracer) FactoryOption {
	return func(f *BackendFactory) {
		f.tracer = tracer
	}
}

// NewStorageFactory creates a storage factory for the configured backends.
// A connection pool is opened only when a backend is PostgreSQL.
func NewStorageFactory(ctx context.Context, cfg *config.Config, opts ...FactoryOption) (*BackendFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	factory := &BackendFactory{config: cfg}
	for _, opt := range opts {
		opt(factory)
	}

	if cfg.RequiresDatabase() {
		slog.Info("Creating database connection pool",
			"lock_type", cfg.Lock.GetType(),
			"store_type", cfg.Store.GetType())

		pool, err := db.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to create database connection pool: %w", err)
		}
		factory.pool = pool
	}

	return factory, nil
}

// Cleanup closes the created backends that hold resources, then the
// database connection pool, if one was opened
func (f *BackendFactory) Cleanup() {
	for _, c := range f.closers {
		if err := c.Close(); err != nil {
			slog.Error("Failed to close storage backend", "error", err)
		}
	}
	f.closers = nil

	if f.pool != nil {
		slog.Info("Closing database connection pool")
		f.pool.Close()
		f.pool = nil
	}
}
