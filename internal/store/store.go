// Package store defines the indexed document store consumed by the registry
// and helpers shared by its backends.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/stacklok/cmdb-registry-server/internal/model"
)

// ErrNotFound is returned when a collection or document does not exist
var ErrNotFound = errors.New("not found")

// Document is a stored record together with its identifier
type Document struct {
	ID     string         `json:"_id"`
	Source map[string]any `json:"_source"`
}

// TermResult is the outcome of a term query
type TermResult struct {
	Total int
	Hits  []Document
}

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go DocumentStore,SchemaWriter,EntityWriter,Store

// DocumentStore is the read side of the indexed document store used during validation
type DocumentStore interface {
	// GetDocument returns the entity stored under key in collection, or ErrNotFound
	GetDocument(ctx context.Context, collection, key string) (*Document, error)

	// GetSchemaDocument returns the schema document of the named collection, or ErrNotFound
	GetSchemaDocument(ctx context.Context, collection string) (*Document, error)

	// HeadCollection reports whether the collection exists
	HeadCollection(ctx context.Context, collection string) (bool, error)

	// QueryByTerm returns the entities whose field equals value. For list
	// fields a document matches when the list contains value.
	QueryByTerm(ctx context.Context, collection, field string, value any) (*TermResult, error)

	// Ping verifies the store is reachable
	Ping(ctx context.Context) error
}

// SchemaWriter persists schema definitions
type SchemaWriter interface {
	// PutSchema creates the schema's collection if needed and stores the definition
	PutSchema(ctx context.Context, schema *model.Schema) error
}

// EntityWriter persists entities
type EntityWriter interface {
	// PutEntity stores doc under key in collection, replacing any existing document
	PutEntity(ctx context.Context, collection, key string, doc map[string]any) error
}

// Store is the full document store
type Store interface {
	DocumentStore
	SchemaWriter
	EntityWriter
}

// Error reports a non-success response from the document store
type Error struct {
	Op         string
	Collection string
	StatusCode int
	Err        error
}

// Error returns the error message
func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("store %s %s failed with status %d: %v", e.Op, e.Collection, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("store %s %s failed: %v", e.Op, e.Collection, e.Err)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err as a store error for the given operation
func NewError(op, collection string, statusCode int, err error) error {
	return &Error{Op: op, Collection: collection, StatusCode: statusCode, Err: err}
}

// LoadSchema reads and decodes the schema stored for the named collection.
// It returns ErrNotFound when no schema document exists.
func LoadSchema(ctx context.Context, s DocumentStore, name string) (*model.Schema, error) {
	doc, err := s.GetSchemaDocument(ctx, name)
	if err != nil {
		return nil, err
	}
	schema, _, err := model.DecodeSchema(doc.Source)
	if err != nil {
		return nil, NewError("decode-schema", name, 0, err)
	}
	return schema, nil
}
