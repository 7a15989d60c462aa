// Package memory provides an in-process document store for single-instance
// deployments and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/stacklok/cmdb-registry-server/internal/model"
	"github.com/stacklok/cmdb-registry-server/internal/store"
)

type collection struct {
	schema    map[string]any
	documents map[string]map[string]any
}

// Store keeps collections in maps guarded by a read-write mutex.
// Documents are deep-copied on the way in and out.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

var _ store.Store = (*Store)(nil)

// New creates an empty in-memory store
func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

// GetDocument returns the entity stored under key in the named collection
func (s *Store) GetDocument(_ context.Context, name, key string) (*store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	doc, ok := c.documents[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &store.Document{ID: key, Source: copyDocument(doc)}, nil
}

// GetSchemaDocument returns the schema document of the named collection
func (s *Store) GetSchemaDocument(_ context.Context, name string) (*store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok || c.schema == nil {
		return nil, store.ErrNotFound
	}
	return &store.Document{ID: name, Source: copyDocument(c.schema)}, nil
}

// HeadCollection reports whether the named collection exists
func (s *Store) HeadCollection(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.collections[name]
	return ok, nil
}

// QueryByTerm returns the entities whose field equals value or, for list
// fields, contains it. Hits are ordered by document key.
func (s *Store) QueryByTerm(_ context.Context, name, field string, value any) (*store.TermResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := &store.TermResult{}
	c, ok := s.collections[name]
	if !ok {
		return result, nil
	}

	term := normalize(value)
	keys := make([]string, 0, len(c.documents))
	for key := range c.documents {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		doc := c.documents[key]
		if matches(doc[field], term) {
			result.Hits = append(result.Hits, store.Document{ID: key, Source: copyDocument(doc)})
		}
	}
	result.Total = len(result.Hits)
	return result, nil
}

// Ping always succeeds
func (*Store) Ping(context.Context) error {
	return nil
}

// PutSchema creates the schema's collection if needed and stores the definition
func (s *Store) PutSchema(_ context.Context, schema *model.Schema) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(schema.Name)
	c.schema = copyDocument(schema.Document())
	return nil
}

// PutEntity stores doc under key, replacing any existing document
func (s *Store) PutEntity(_ context.Context, name, key string, doc map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(name)
	c.documents[key] = copyDocument(doc)
	return nil
}

func (s *Store) collection(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{documents: make(map[string]map[string]any)}
		s.collections[name] = c
	}
	return c
}

func matches(stored, term any) bool {
	if list, ok := stored.([]any); ok {
		for _, element := range list {
			if reflect.DeepEqual(normalize(element), term) {
				return true
			}
		}
		return false
	}
	return reflect.DeepEqual(normalize(stored), term)
}

// number is the comparable form of a numeric term
type number string

// normalize maps numbers of any Go kind to their decimal literal so that
// json.Number("42") and int(42) compare equal
func normalize(value any) any {
	switch v := value.(type) {
	case json.Number:
		return number(v.String())
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return number(fmt.Sprintf("%v", v))
	default:
		return value
	}
}

// copyDocument deep-copies the JSON-shaped maps and lists of doc
func copyDocument(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyDocument(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = copyValue(e)
		}
		return out
	default:
		return val
	}
}
