// Package file provides a lock service backed by advisory file locks, for
// several registry processes sharing one host or volume.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/stacklok/cmdb-registry-server/internal/lock"
)

const lockSuffix = ".lock"

type heldLock struct {
	flock *flock.Flock
	owner string
}

// Service maps each lock path to a file under a root directory. The
// operating system drops the advisory lock when the holding process exits,
// so a crashed holder never leaves a resource locked.
type Service struct {
	dir  string
	mu   sync.Mutex
	held map[string]heldLock
}

var _ lock.Service = (*Service)(nil)

// New creates a file lock service rooted at dir, creating it if needed
func New(dir string) (*Service, error) {
	if dir == "" {
		return nil, fmt.Errorf("lock directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve lock directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	return &Service{dir: abs, held: make(map[string]heldLock)}, nil
}

// Acquire takes the file lock of path without blocking
func (s *Service) Acquire(ctx context.Context, path string) (lock.Handle, error) {
	if err := ctx.Err(); err != nil {
		return lock.Handle{}, err
	}

	filename, err := s.filename(path)
	if err != nil {
		return lock.Handle{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.held[path]; ok {
		return lock.Handle{}, fmt.Errorf("%w: %s", lock.ErrLockContention, path)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0o750); err != nil {
		return lock.Handle{}, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(filename)
	locked, err := fl.TryLock()
	if err != nil {
		return lock.Handle{}, fmt.Errorf("failed to lock %s: %w", filename, err)
	}
	if !locked {
		return lock.Handle{}, fmt.Errorf("%w: %s", lock.ErrLockContention, path)
	}

	owner := uuid.NewString()
	s.held[path] = heldLock{flock: fl, owner: owner}
	return lock.Handle{Path: path, Owner: owner}, nil
}

// Release unlocks the file held by handle. The file itself is left in place
// so that concurrent openers always contend on the same inode.
func (s *Service) Release(_ context.Context, handle lock.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.held[handle.Path]
	if !ok || h.owner != handle.Owner {
		return fmt.Errorf("%w: %s", lock.ErrNotHeld, handle.Path)
	}
	delete(s.held, handle.Path)

	if err := h.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock %s: %w", h.flock.Path(), err)
	}
	return nil
}

// Ping checks that the lock directory is still accessible
func (s *Service) Ping(context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("lock directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("lock directory %s is not a directory", s.dir)
	}
	return nil
}

// Close releases every lock held by this process
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for path, h := range s.held {
		if err := h.flock.Unlock(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.held, path)
	}
	return firstErr
}

func (s *Service) filename(path string) (string, error) {
	rel := strings.TrimPrefix(filepath.Clean(filepath.FromSlash(path)), string(filepath.Separator))
	if rel == "" || rel == "." {
		return "", fmt.Errorf("invalid lock path %q", path)
	}
	filename := filepath.Join(s.dir, rel) + lockSuffix
	if !strings.HasPrefix(filename, s.dir+string(filepath.Separator)) {
		return "", fmt.Errorf("lock path %q escapes the lock directory", path)
	}
	return filename, nil
}
