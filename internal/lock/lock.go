// Package lock serializes mutations per resource name through an external
// lock service with ephemeral, create-once lock paths.
package lock

import (
	"context"
	"errors"
	"path"
)

var (
	// ErrLockContention is returned when the lock path is already held
	ErrLockContention = errors.New("lock is held")

	// ErrNotHeld is returned when releasing a handle that no longer owns its path
	ErrNotHeld = errors.New("lock is not held")
)

// DefaultRootPath is the lock path prefix used when none is configured
const DefaultRootPath = "/cmdb"

// Handle identifies one successful acquisition. Owner distinguishes
// successive holders of the same path.
type Handle struct {
	Path  string
	Owner string
}

//go:generate mockgen -destination=mocks/mock_lock.go -package=mocks -source=lock.go Service

// Service is a lock service handing out exclusive, path-scoped locks
type Service interface {
	// Acquire creates the lock at path. It fails immediately with an error
	// wrapping ErrLockContention when the path is already held.
	Acquire(ctx context.Context, path string) (Handle, error)

	// Release removes the lock owned by handle
	Release(ctx context.Context, handle Handle) error

	// Ping verifies the lock service is reachable
	Ping(ctx context.Context) error
}

// ResourcePath returns the lock path of the named resource under root
func ResourcePath(root, name string) string {
	if root == "" {
		root = DefaultRootPath
	}
	return path.Join("/", root, name)
}
