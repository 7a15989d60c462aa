package store

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/stacklok/cmdb-registry-server/internal/model"
)

// CachedSchemaStore serves schema documents from a TTL cache in front of
// another store. Writes through this store invalidate the cached entry;
// writes made by other replicas become visible once the entry expires.
type CachedSchemaStore struct {
	Store
	cache *gocache.Cache

	// generations counts completed PutSchema calls per schema name. A miss
	// only fills the cache if no write finished while it was reading.
	mu          sync.Mutex
	generations map[string]uint64
}

var _ Store = (*CachedSchemaStore)(nil)

// NewCachedSchemaStore wraps inner with a schema cache whose entries live for ttl
func NewCachedSchemaStore(inner Store, ttl time.Duration) *CachedSchemaStore {
	return &CachedSchemaStore{
		Store:       inner,
		cache:       gocache.New(ttl, 2*ttl),
		generations: make(map[string]uint64),
	}
}

// GetSchemaDocument returns the cached schema document, loading it from the
// inner store on a miss. Misses for unknown schemas are not cached.
// The returned document is shared and must not be modified.
func (s *CachedSchemaStore) GetSchemaDocument(ctx context.Context, collection string) (*Document, error) {
	if cached, ok := s.cache.Get(collection); ok {
		return cached.(*Document), nil
	}

	s.mu.Lock()
	gen := s.generations[collection]
	s.mu.Unlock()

	doc, err := s.Store.GetSchemaDocument(ctx, collection)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.generations[collection] == gen {
		s.cache.SetDefault(collection, doc)
	}
	s.mu.Unlock()
	return doc, nil
}

// HeadCollection answers from the cache when the schema is cached
func (s *CachedSchemaStore) HeadCollection(ctx context.Context, collection string) (bool, error) {
	if _, ok := s.cache.Get(collection); ok {
		return true, nil
	}
	return s.Store.HeadCollection(ctx, collection)
}

// PutSchema stores schema through the inner store and drops its cached entry.
// Reads that started before the write returns are not cached.
func (s *CachedSchemaStore) PutSchema(ctx context.Context, schema *model.Schema) error {
	defer func() {
		s.mu.Lock()
		s.generations[schema.Name]++
		s.cache.Delete(schema.Name)
		s.mu.Unlock()
	}()
	return s.Store.PutSchema(ctx, schema)
}
