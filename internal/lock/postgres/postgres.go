// Package postgres provides a lock service backed by rows of the
// registry_locks table, for registry replicas sharing one database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stacklok/cmdb-registry-server/internal/lock"
)

// uniqueViolation is the SQLSTATE raised when the lock row already exists
const uniqueViolation = "23505"

const (
	reapStaleSQL = `DELETE FROM registry_locks WHERE path = $1 AND acquired_at < now() - make_interval(secs => $2)`
	acquireSQL   = `INSERT INTO registry_locks (path, owner, acquired_at) VALUES ($1, $2, now())`
	releaseSQL   = `DELETE FROM registry_locks WHERE path = $1 AND owner = $2`
	pingSQL      = `SELECT 1 FROM registry_locks LIMIT 1`
)

// DB is the subset of pgxpool.Pool used by the lock service
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// Service holds one row per locked path
type Service struct {
	db         DB
	staleAfter time.Duration
}

var _ lock.Service = (*Service)(nil)

// Option is a function that configures the service
type Option func(*Service)

// WithStaleAfter reaps lock rows older than d before each acquisition so a
// crashed holder cannot keep a path locked forever. Zero disables reaping.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Service) {
		s.staleAfter = d
	}
}

// New creates a lock service on db
func New(db DB, opts ...Option) *Service {
	s := &Service{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire inserts the lock row of path. The primary key on path makes the
// insert the atomic create-once step.
func (s *Service) Acquire(ctx context.Context, path string) (lock.Handle, error) {
	if s.staleAfter > 0 {
		if _, err := s.db.Exec(ctx, reapStaleSQL, path, s.staleAfter.Seconds()); err != nil {
			return lock.Handle{}, fmt.Errorf("failed to reap stale lock %s: %w", path, err)
		}
	}

	owner := uuid.NewString()
	if _, err := s.db.Exec(ctx, acquireSQL, path, owner); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return lock.Handle{}, fmt.Errorf("%w: %s", lock.ErrLockContention, path)
		}
		return lock.Handle{}, fmt.Errorf("failed to insert lock %s: %w", path, err)
	}

	return lock.Handle{Path: path, Owner: owner}, nil
}

// Release deletes the lock row if handle still owns it
func (s *Service) Release(ctx context.Context, handle lock.Handle) error {
	tag, err := s.db.Exec(ctx, releaseSQL, handle.Path, handle.Owner)
	if err != nil {
		return fmt.Errorf("failed to delete lock %s: %w", handle.Path, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", lock.ErrNotHeld, handle.Path)
	}
	return nil
}

// Ping verifies the database is reachable and the lock table exists
func (s *Service) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, pingSQL); err != nil {
		return fmt.Errorf("lock table unavailable: %w", err)
	}
	return nil
}
