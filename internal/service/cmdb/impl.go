// Package cmdb provides the lock-guarded implementation of the RegistryService
// interface on top of a document store
package cmdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/cmdb-registry-server/internal/lock"
	"github.com/stacklok/cmdb-registry-server/internal/model"
	"github.com/stacklok/cmdb-registry-server/internal/otel"
	"github.com/stacklok/cmdb-registry-server/internal/service"
	"github.com/stacklok/cmdb-registry-server/internal/store"
	"github.com/stacklok/cmdb-registry-server/internal/telemetry"
	"github.com/stacklok/cmdb-registry-server/internal/validators"
)

// ServiceTracerName is the name used for the registry service tracer
const ServiceTracerName = "github.com/stacklok/cmdb-registry-server/service"

// options holds configuration options for the registry service
type options struct {
	store       store.Store
	coordinator *lock.Coordinator
	tracer      trace.Tracer
	mutations   *telemetry.MutationMetrics
	locks       *telemetry.LockMetrics
}

// Option is a functional option for configuring the registry service
type Option func(*options) error

// WithStore sets the document store holding schemas and entities
func WithStore(s store.Store) Option {
	return func(o *options) error {
		if s == nil {
			return fmt.Errorf("store is required")
		}
		o.store = s
		return nil
	}
}

// WithCoordinator sets the lock coordinator serializing mutations per name
func WithCoordinator(c *lock.Coordinator) Option {
	return func(o *options) error {
		if c == nil {
			return fmt.Errorf("lock coordinator is required")
		}
		o.coordinator = c
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer for the service.
// If not set, tracing will be disabled (no-op).
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		o.tracer = tracer
		return nil
	}
}

// WithMutationMetrics sets the instruments recording write durations
func WithMutationMetrics(m *telemetry.MutationMetrics) Option {
	return func(o *options) error {
		o.mutations = m
		return nil
	}
}

// WithLockMetrics sets the instruments counting lock contention
func WithLockMetrics(m *telemetry.LockMetrics) Option {
	return func(o *options) error {
		o.locks = m
		return nil
	}
}

// registryService implements service.RegistryService
type registryService struct {
	store       store.Store
	coordinator *lock.Coordinator
	schemas     *validators.SchemaValidator
	entities    *validators.EntityValidator
	tracer      trace.Tracer
	mutations   *telemetry.MutationMetrics
	locks       *telemetry.LockMetrics
}

var _ service.RegistryService = (*registryService)(nil)

// New creates a registry service. A store and a lock coordinator are required.
func New(opts ...Option) (service.RegistryService, error) {
	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if o.coordinator == nil {
		return nil, fmt.Errorf("lock coordinator is required")
	}

	return &registryService{
		store:       o.store,
		coordinator: o.coordinator,
		schemas:     validators.NewSchemaValidator(o.store),
		entities:    validators.NewEntityValidator(o.store),
		tracer:      o.tracer,
		mutations:   o.mutations,
		locks:       o.locks,
	}, nil
}

// CheckReadiness pings the store and the lock backend
func (s *registryService) CheckReadiness(ctx context.Context) error {
	var errs []error
	if err := s.store.Ping(ctx); err != nil {
		errs = append(errs, fmt.Errorf("store not ready: %w", err))
	}
	if err := s.coordinator.Ping(ctx); err != nil {
		errs = append(errs, fmt.Errorf("lock service not ready: %w", err))
	}
	return errors.Join(errs...)
}

// DefineSchema decodes payload, then validates and stores the schema while
// holding the lock on its name
func (s *registryService) DefineSchema(ctx context.Context, payload map[string]any) (result *service.DefineSchemaResult, err error) {
	start := time.Now()
	ctx, span := otel.StartSpan(ctx, s.tracer, "registryService.DefineSchema")
	defer func() {
		s.finishMutation(ctx, span, telemetry.KindSchema, start, err)
	}()

	schema, warnings, err := model.DecodeSchema(payload)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		otel.AttrSchemaName.String(schema.Name),
		otel.AttrWarningCount.Int(len(warnings)),
	)

	if err := validators.ValidateName(schema.Name); err != nil {
		return nil, &validators.SchemaError{Kind: validators.KindInvalidName, Field: "name", Message: err.Error()}
	}

	for _, w := range warnings {
		slog.WarnContext(ctx, "Schema attribute normalized",
			"schema", schema.Name,
			"field", w.Field,
			"attribute", w.Attribute,
			"message", w.Message)
	}

	span.SetAttributes(otel.AttrLockPath.String(s.coordinator.Path(schema.Name)))
	err = s.coordinator.WithLock(ctx, schema.Name, func(ctx context.Context) error {
		if err := s.schemas.Validate(ctx, schema); err != nil {
			return err
		}
		return s.store.PutSchema(ctx, schema)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Schema defined", "schema", schema.Name, "fields", len(schema.Fields))
	if warnings == nil {
		warnings = []model.Warning{}
	}
	return &service.DefineSchemaResult{Name: schema.Name, Warnings: warnings}, nil
}

// CreateEntity validates payload against the named schema and stores it
// while holding the lock on the schema name
func (s *registryService) CreateEntity(
	ctx context.Context,
	schemaName string,
	payload map[string]any,
) (result *service.CreateEntityResult, err error) {
	start := time.Now()
	ctx, span := otel.StartSpan(ctx, s.tracer, "registryService.CreateEntity",
		trace.WithAttributes(otel.AttrSchemaName.String(schemaName)),
	)
	defer func() {
		s.finishMutation(ctx, span, telemetry.KindEntity, start, err)
	}()

	if err := validators.ValidateName(schemaName); err != nil {
		return nil, &validators.SchemaError{Kind: validators.KindInvalidName, Field: "name", Message: err.Error()}
	}

	entity := model.Entity(payload).WithoutMeta()
	var key string
	span.SetAttributes(otel.AttrLockPath.String(s.coordinator.Path(schemaName)))
	err = s.coordinator.WithLock(ctx, schemaName, func(ctx context.Context) error {
		schema, err := s.loadSchema(ctx, schemaName)
		if err != nil {
			return err
		}
		if key, err = s.entities.Validate(ctx, schema, entity); err != nil {
			return err
		}
		return s.store.PutEntity(ctx, schemaName, key, entity)
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(otel.AttrEntityKey.String(key))
	slog.InfoContext(ctx, "Entity stored", "schema", schemaName, "key", key)
	return &service.CreateEntityResult{Schema: schemaName, Key: key}, nil
}

// GetSchema returns the stored definition of the named schema
func (s *registryService) GetSchema(ctx context.Context, name string) (schema *model.Schema, err error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "registryService.GetSchema",
		trace.WithAttributes(otel.AttrSchemaName.String(name)),
	)
	defer func() {
		if !errors.Is(err, service.ErrSchemaNotFound) {
			otel.RecordError(span, err)
		}
		span.End()
	}()

	return s.loadSchema(ctx, name)
}

// GetEntity returns the entity stored under key in the named schema
func (s *registryService) GetEntity(ctx context.Context, schemaName, key string) (doc *store.Document, err error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "registryService.GetEntity",
		trace.WithAttributes(
			otel.AttrSchemaName.String(schemaName),
			otel.AttrEntityKey.String(key),
		),
	)
	defer func() {
		if !errors.Is(err, service.ErrEntityNotFound) {
			otel.RecordError(span, err)
		}
		span.End()
	}()

	doc, err = s.store.GetDocument(ctx, schemaName, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", service.ErrEntityNotFound, schemaName, key)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *registryService) loadSchema(ctx context.Context, name string) (*model.Schema, error) {
	schema, err := store.LoadSchema(ctx, s.store, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", service.ErrSchemaNotFound, name)
	}
	return schema, err
}

// finishMutation records metrics for a write and ends its span
func (s *registryService) finishMutation(ctx context.Context, span trace.Span, kind string, start time.Time, err error) {
	outcome := Outcome(err)
	if outcome == telemetry.OutcomeLocked {
		s.locks.RecordContention(ctx, kind)
	}
	if outcome == telemetry.OutcomeError {
		otel.RecordError(span, err)
	}
	s.mutations.RecordMutation(ctx, kind, outcome, time.Since(start))
	span.End()
}

// Outcome classifies the result of a mutation for metrics
func Outcome(err error) string {
	var (
		schemaErr *validators.SchemaError
		entityErr *validators.EntityError
		decodeErr *model.DecodeError
	)
	switch {
	case err == nil:
		return telemetry.OutcomeSuccess
	case errors.Is(err, lock.ErrLockContention):
		return telemetry.OutcomeLocked
	case errors.As(err, &schemaErr), errors.As(err, &entityErr),
		errors.As(err, &decodeErr), errors.Is(err, model.ErrMissingName):
		return telemetry.OutcomeRejected
	case errors.Is(err, service.ErrSchemaNotFound):
		return telemetry.OutcomeNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return telemetry.OutcomeCancelled
	default:
		return telemetry.OutcomeError
	}
}
