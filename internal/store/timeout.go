package store

import (
	"context"
	"time"

	"github.com/stacklok/cmdb-registry-server/internal/model"
)

// TimeoutStore bounds every call to the inner store by a fixed timeout
type TimeoutStore struct {
	inner   Store
	timeout time.Duration
}

var _ Store = (*TimeoutStore)(nil)

// NewTimeoutStore wraps inner so each call gets at most timeout. A
// non-positive timeout returns inner unchanged.
func NewTimeoutStore(inner Store, timeout time.Duration) Store {
	if timeout <= 0 {
		return inner
	}
	return &TimeoutStore{inner: inner, timeout: timeout}
}

// GetDocument implements DocumentStore
func (s *TimeoutStore) GetDocument(ctx context.Context, collection, key string) (*Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.inner.GetDocument(ctx, collection, key)
}

// GetSchemaDocument implements DocumentStore
func (s *TimeoutStore) GetSchemaDocument(ctx context.Context, collection string) (*Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.inner.GetSchemaDocument(ctx, collection)
}

// HeadCollection implements DocumentStore
func (s *TimeoutStore) HeadCollection(ctx context.Context, collection string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.inner.HeadCollection(ctx, collection)
}

// QueryByTerm implements DocumentStore
func (s *TimeoutStore) QueryByTerm(ctx context.Context, collection, field string, value any) (*TermResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.inner.QueryByTerm(ctx, collection, field, value)
}

// Ping implements DocumentStore
func (s *TimeoutStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.inner.Ping(ctx)
}

// PutSchema implements SchemaWriter
func (s *TimeoutStore) PutSchema(ctx context.Context, schema *model.Schema) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.inner.PutSchema(ctx, schema)
}

// PutEntity implements EntityWriter
func (s *TimeoutStore) PutEntity(ctx context.Context, collection, key string, doc map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.inner.PutEntity(ctx, collection, key, doc)
}
