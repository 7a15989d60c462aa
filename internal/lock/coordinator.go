package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stacklok/cmdb-registry-server/internal/telemetry"
)

const (
	// DefaultAcquireTimeout bounds a single Acquire call
	DefaultAcquireTimeout = 5 * time.Second

	// DefaultReleaseTimeout bounds a single Release call
	DefaultReleaseTimeout = 5 * time.Second
)

// Coordinator runs functions while holding the lock of a named resource
type Coordinator struct {
	service        Service
	rootPath       string
	acquireTimeout time.Duration
	releaseTimeout time.Duration
	metrics        *telemetry.LockMetrics
}

// Option is a function that configures the coordinator
type Option func(*Coordinator)

// WithRootPath sets the prefix under which resource locks are created
func WithRootPath(root string) Option {
	return func(c *Coordinator) {
		c.rootPath = root
	}
}

// WithAcquireTimeout sets the upper bound of a single acquisition.
// A zero or negative value disables the bound.
func WithAcquireTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.acquireTimeout = d
	}
}

// WithReleaseTimeout sets the upper bound of a single release.
// A zero or negative value disables the bound.
func WithReleaseTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.releaseTimeout = d
	}
}

// WithMetrics sets the lock metrics for the coordinator
func WithMetrics(metrics *telemetry.LockMetrics) Option {
	return func(c *Coordinator) {
		c.metrics = metrics
	}
}

// NewCoordinator creates a coordinator backed by service
func NewCoordinator(service Service, opts ...Option) *Coordinator {
	c := &Coordinator{
		service:        service,
		rootPath:       DefaultRootPath,
		acquireTimeout: DefaultAcquireTimeout,
		releaseTimeout: DefaultReleaseTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Path returns the lock path guarding the named resource
func (c *Coordinator) Path(name string) string {
	return ResourcePath(c.rootPath, name)
}

// WithLock acquires the lock of the named resource, runs fn and releases the
// lock before returning, whether fn returns or panics. Contention is
// reported immediately as ErrLockContention and fn is never called.
func (c *Coordinator) WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	lockPath := c.Path(name)

	acquireCtx, cancel := withOptionalTimeout(ctx, c.acquireTimeout)
	handle, err := c.service.Acquire(acquireCtx, lockPath)
	cancel()
	if err != nil {
		if errors.Is(err, ErrLockContention) {
			slog.DebugContext(ctx, "Lock contention", "path", lockPath)
			return err
		}
		return fmt.Errorf("failed to acquire lock %s: %w", lockPath, err)
	}

	defer c.release(ctx, handle)

	return fn(ctx)
}

// release runs detached from ctx cancellation so an aborted request still
// frees its lock
func (c *Coordinator) release(ctx context.Context, handle Handle) {
	releaseCtx, cancel := withOptionalTimeout(context.WithoutCancel(ctx), c.releaseTimeout)
	defer cancel()

	if err := c.service.Release(releaseCtx, handle); err != nil {
		slog.ErrorContext(ctx, "Failed to release lock",
			"path", handle.Path,
			"owner", handle.Owner,
			"error", err)
		c.metrics.RecordReleaseFailure(releaseCtx)
	}
}

// Ping verifies the underlying lock service is reachable
func (c *Coordinator) Ping(ctx context.Context) error {
	return c.service.Ping(ctx)
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
