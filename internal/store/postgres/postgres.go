// Package postgres implements the document store on PostgreSQL JSONB columns
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/cmdb-registry-server/internal/model"
	"github.com/stacklok/cmdb-registry-server/internal/otel"
	"github.com/stacklok/cmdb-registry-server/internal/store"
)

const (
	headSQL      = `SELECT EXISTS (SELECT 1 FROM cmdb_collections WHERE name = $1)`
	getSchemaSQL = `SELECT schema FROM cmdb_collections WHERE name = $1 AND schema IS NOT NULL`
	getEntitySQL = `SELECT body FROM cmdb_documents WHERE collection = $1 AND id = $2`

	// jsonb containment matches equal scalars and arrays holding the term
	queryByTermSQL = `SELECT id, body FROM cmdb_documents
WHERE collection = $1 AND body -> $2::text @> $3::jsonb
ORDER BY id`

	putSchemaSQL = `INSERT INTO cmdb_collections (name, schema) VALUES ($1, $2::jsonb)
ON CONFLICT (name) DO UPDATE SET schema = EXCLUDED.schema, updated_at = now()`

	ensureCollectionSQL = `INSERT INTO cmdb_collections (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`

	putEntitySQL = `INSERT INTO cmdb_documents (collection, id, body) VALUES ($1, $2, $3::jsonb)
ON CONFLICT (collection, id) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`
)

// DB is the subset of pgxpool.Pool used by the store
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Store keeps schemas in cmdb_collections and entities in cmdb_documents
type Store struct {
	db     DB
	tracer trace.Tracer
}

var _ store.Store = (*Store)(nil)

// Option configures a Store
type Option func(*Store)

// WithTracer sets the tracer used to create spans around queries
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Store) {
		s.tracer = tracer
	}
}

// New creates a store on db. The schema is managed by the database migrations.
func New(db DB, opts ...Option) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HeadCollection reports whether a row exists for collection
func (s *Store) HeadCollection(ctx context.Context, collection string) (exists bool, err error) {
	ctx, span := s.startSpan(ctx, "postgres.HeadCollection", collection)
	defer func() { endSpan(span, err) }()

	if err := s.db.QueryRow(ctx, headSQL, collection).Scan(&exists); err != nil {
		return false, store.NewError("head", collection, 0, err)
	}
	return exists, nil
}

// GetSchemaDocument returns the schema stored for collection
func (s *Store) GetSchemaDocument(ctx context.Context, collection string) (doc *store.Document, err error) {
	ctx, span := s.startSpan(ctx, "postgres.GetSchemaDocument", collection)
	defer func() { endSpan(span, err) }()

	source, err := s.getJSON(ctx, "get-schema", collection, getSchemaSQL, collection)
	if err != nil {
		return nil, err
	}
	return &store.Document{ID: collection, Source: source}, nil
}

// GetDocument returns the entity stored under key
func (s *Store) GetDocument(ctx context.Context, collection, key string) (doc *store.Document, err error) {
	ctx, span := s.startSpan(ctx, "postgres.GetDocument", collection)
	span.SetAttributes(otel.AttrEntityKey.String(key))
	defer func() { endSpan(span, err) }()

	source, err := s.getJSON(ctx, "get-entity", collection, getEntitySQL, collection, key)
	if err != nil {
		return nil, err
	}
	return &store.Document{ID: key, Source: source}, nil
}

// QueryByTerm returns the entities of collection whose field equals value
// or, for arrays, contains it. Hits are ordered by key.
func (s *Store) QueryByTerm(ctx context.Context, collection, field string, value any) (result *store.TermResult, err error) {
	ctx, span := s.startSpan(ctx, "postgres.QueryByTerm", collection)
	span.SetAttributes(otel.AttrField.String(field))
	defer func() {
		if result != nil {
			span.SetAttributes(otel.AttrResultCount.Int(result.Total))
		}
		endSpan(span, err)
	}()

	term, err := json.Marshal(value)
	if err != nil {
		return nil, store.NewError("search", collection, 0, fmt.Errorf("failed to encode term: %w", err))
	}

	rows, err := s.db.Query(ctx, queryByTermSQL, collection, field, string(term))
	if err != nil {
		return nil, store.NewError("search", collection, 0, err)
	}
	defer rows.Close()

	result = &store.TermResult{}
	for rows.Next() {
		var (
			id   string
			body []byte
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, store.NewError("search", collection, 0, err)
		}
		source, err := model.DecodeJSONBytes(body)
		if err != nil {
			return nil, store.NewError("search", collection, 0, err)
		}
		result.Hits = append(result.Hits, store.Document{ID: id, Source: source})
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewError("search", collection, 0, err)
	}
	result.Total = len(result.Hits)
	return result, nil
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return store.NewError("ping", "", 0, err)
	}
	return nil
}

// PutSchema creates or replaces the collection's schema, keeping its entities
func (s *Store) PutSchema(ctx context.Context, schema *model.Schema) (err error) {
	ctx, span := s.startSpan(ctx, "postgres.PutSchema", schema.Name)
	defer func() { endSpan(span, err) }()

	body, err := json.Marshal(schema.Document())
	if err != nil {
		return store.NewError("put-schema", schema.Name, 0, fmt.Errorf("failed to encode schema: %w", err))
	}
	if _, err := s.db.Exec(ctx, putSchemaSQL, schema.Name, string(body)); err != nil {
		return store.NewError("put-schema", schema.Name, 0, err)
	}
	return nil
}

// PutEntity stores doc under key, creating the collection row if needed
func (s *Store) PutEntity(ctx context.Context, collection, key string, doc map[string]any) (err error) {
	ctx, span := s.startSpan(ctx, "postgres.PutEntity", collection)
	span.SetAttributes(otel.AttrEntityKey.String(key))
	defer func() { endSpan(span, err) }()

	body, err := json.Marshal(doc)
	if err != nil {
		return store.NewError("put-entity", collection, 0, fmt.Errorf("failed to encode document: %w", err))
	}
	if _, err := s.db.Exec(ctx, ensureCollectionSQL, collection); err != nil {
		return store.NewError("put-entity", collection, 0, err)
	}
	if _, err := s.db.Exec(ctx, putEntitySQL, collection, key, string(body)); err != nil {
		return store.NewError("put-entity", collection, 0, err)
	}
	return nil
}

func (s *Store) getJSON(ctx context.Context, op, collection, sql string, args ...any) (map[string]any, error) {
	var body []byte
	if err := s.db.QueryRow(ctx, sql, args...).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, store.NewError(op, collection, 0, err)
	}
	source, err := model.DecodeJSONBytes(body)
	if err != nil {
		return nil, store.NewError(op, collection, 0, err)
	}
	return source, nil
}

func (s *Store) startSpan(ctx context.Context, name, collection string) (context.Context, trace.Span) {
	return otel.StartSpan(ctx, s.tracer, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			otel.AttrStoreType.String("postgres"),
			otel.AttrCollection.String(collection),
			semconv.DBSystemPostgreSQL,
		),
	)
}

func endSpan(span trace.Span, err error) {
	if !errors.Is(err, store.ErrNotFound) {
		otel.RecordError(span, err)
	}
	span.End()
}
