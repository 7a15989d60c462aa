package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stacklok/cmdb-registry-server/internal/config"
	"github.com/stacklok/cmdb-registry-server/internal/store"
	"github.com/stacklok/cmdb-registry-server/internal/store/elastic"
	"github.com/stacklok/cmdb-registry-server/internal/store/memory"
	"github.com/stacklok/cmdb-registry-server/internal/store/postgres"
)

// CreateStore creates the configured document store. Every call is bounded
// by store.requestTimeout, and a positive store.schemaCacheTTL puts a schema
// cache in front of the backend.
func (f *BackendFactory) CreateStore(_ context.Context) (store.Store, error) {
	backend, err := f.createBackendStore()
	if err != nil {
		return nil, err
	}

	s := store.NewTimeoutStore(backend, f.config.Store.GetRequestTimeout())
	if ttl := f.config.Store.GetSchemaCacheTTL(); ttl > 0 {
		slog.Info("Schema cache enabled", "ttl", ttl)
		s = store.NewCachedSchemaStore(s, ttl)
	}
	return s, nil
}

func (f *BackendFactory) createBackendStore() (store.Store, error) {
	storeType := f.config.Store.GetType()
	slog.Info("Creating document store", "type", storeType)

	switch storeType {
	case config.StoreTypeMemory:
		return memory.New(), nil

	case config.StoreTypeElasticsearch:
		es := f.config.Store.Elasticsearch
		s, err := elastic.New(es.GetEndpoint(),
			elastic.WithMaxRetries(es.GetMaxRetries()),
			elastic.WithTracer(f.tracer),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create elasticsearch store: %w", err)
		}
		return s, nil

	case config.StoreTypePostgres:
		if f.pool == nil {
			return nil, fmt.Errorf("postgres store requires a database connection")
		}
		return postgres.New(f.pool, postgres.WithTracer(f.tracer)), nil

	default:
		return nil, fmt.Errorf("unknown store type: %s", storeType)
	}
}
