// Package service provides the business logic for the CMDB registry API
package service

import (
	"context"
	"errors"

	"github.com/stacklok/cmdb-registry-server/internal/model"
	"github.com/stacklok/cmdb-registry-server/internal/store"
)

var (
	// ErrSchemaNotFound is returned when a schema is not defined
	ErrSchemaNotFound = errors.New("schema not found")
	// ErrEntityNotFound is returned when an entity does not exist
	ErrEntityNotFound = errors.New("entity not found")
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go RegistryService

// RegistryService defines the interface for registry operations
type RegistryService interface {
	// CheckReadiness checks that the store and lock backends are reachable
	CheckReadiness(ctx context.Context) error

	// DefineSchema creates or extends the schema described by payload
	DefineSchema(ctx context.Context, payload map[string]any) (*DefineSchemaResult, error)

	// CreateEntity validates payload against the named schema and stores it
	CreateEntity(ctx context.Context, schemaName string, payload map[string]any) (*CreateEntityResult, error)

	// GetSchema returns the stored definition of the named schema
	GetSchema(ctx context.Context, name string) (*model.Schema, error)

	// GetEntity returns the entity stored under key
	GetEntity(ctx context.Context, schemaName, key string) (*store.Document, error)
}

// DefineSchemaResult is the outcome of a successful DefineSchema
type DefineSchemaResult struct {
	Name     string          `json:"name"`
	Warnings []model.Warning `json:"warnings"`
}

// CreateEntityResult is the outcome of a successful CreateEntity
type CreateEntityResult struct {
	Schema string `json:"schema"`
	Key    string `json:"key"`
}
