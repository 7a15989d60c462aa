// Package memory provides an in-process lock service for single-instance
// deployments and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/stacklok/cmdb-registry-server/internal/lock"
)

// Service holds locks in a map guarded by a mutex
type Service struct {
	mu   sync.Mutex
	held map[string]string
}

var _ lock.Service = (*Service)(nil)

// New creates an empty in-memory lock service
func New() *Service {
	return &Service{held: make(map[string]string)}
}

// Acquire creates the lock at path unless it is already held
func (s *Service) Acquire(ctx context.Context, path string) (lock.Handle, error) {
	if err := ctx.Err(); err != nil {
		return lock.Handle{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.held[path]; ok {
		return lock.Handle{}, fmt.Errorf("%w: %s", lock.ErrLockContention, path)
	}

	owner := uuid.NewString()
	s.held[path] = owner
	return lock.Handle{Path: path, Owner: owner}, nil
}

// Release removes the lock if handle still owns it
func (s *Service) Release(_ context.Context, handle lock.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.held[handle.Path]; !ok || owner != handle.Owner {
		return fmt.Errorf("%w: %s", lock.ErrNotHeld, handle.Path)
	}
	delete(s.held, handle.Path)
	return nil
}

// Ping always succeeds
func (*Service) Ping(context.Context) error {
	return nil
}

// Held reports whether path is currently locked
func (s *Service) Held(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.held[path]
	return ok
}
