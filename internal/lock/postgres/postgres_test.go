package postgres

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/cmdb-registry-server/database"
	"github.com/stacklok/cmdb-registry-server/internal/lock"
)

type execCall struct {
	sql  string
	args []any
}

// fakeDB answers Exec calls from a queue of results
type fakeDB struct {
	calls   []execCall
	results []execResult
	pingErr error
}

type execResult struct {
	tag pgconn.CommandTag
	err error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	if len(f.results) == 0 {
		return pgconn.NewCommandTag("OK"), nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.tag, r.err
}

func (f *fakeDB) Ping(context.Context) error {
	return f.pingErr
}

func TestService_Acquire(t *testing.T) {
	t.Parallel()

	t.Run("inserts a row owned by the handle", func(t *testing.T) {
		t.Parallel()

		db := &fakeDB{results: []execResult{{tag: pgconn.NewCommandTag("INSERT 0 1")}}}
		handle, err := New(db).Acquire(context.Background(), "/cmdb/host")
		require.NoError(t, err)

		assert.Equal(t, "/cmdb/host", handle.Path)
		require.Len(t, db.calls, 1)
		assert.True(t, strings.HasPrefix(db.calls[0].sql, "INSERT INTO registry_locks"))
		assert.Equal(t, []any{"/cmdb/host", handle.Owner}, db.calls[0].args)
	})

	t.Run("unique violation is contention", func(t *testing.T) {
		t.Parallel()

		db := &fakeDB{results: []execResult{{err: &pgconn.PgError{Code: "23505"}}}}
		_, err := New(db).Acquire(context.Background(), "/cmdb/host")
		require.ErrorIs(t, err, lock.ErrLockContention)
	})

	t.Run("other errors are not contention", func(t *testing.T) {
		t.Parallel()

		db := &fakeDB{results: []execResult{{err: &pgconn.PgError{Code: "42P01"}}}}
		_, err := New(db).Acquire(context.Background(), "/cmdb/host")
		require.Error(t, err)
		assert.NotErrorIs(t, err, lock.ErrLockContention)
	})

	t.Run("reaps stale rows first", func(t *testing.T) {
		t.Parallel()

		db := &fakeDB{}
		_, err := New(db, WithStaleAfter(time.Minute)).Acquire(context.Background(), "/cmdb/host")
		require.NoError(t, err)

		require.Len(t, db.calls, 2)
		assert.Equal(t, reapStaleSQL, db.calls[0].sql)
		assert.Equal(t, []any{"/cmdb/host", float64(60)}, db.calls[0].args)
		assert.Equal(t, acquireSQL, db.calls[1].sql)
	})
}

func TestService_Release(t *testing.T) {
	t.Parallel()

	handle := lock.Handle{Path: "/cmdb/host", Owner: "owner-1"}

	t.Run("deletes the owned row", func(t *testing.T) {
		t.Parallel()

		db := &fakeDB{results: []execResult{{tag: pgconn.NewCommandTag("DELETE 1")}}}
		require.NoError(t, New(db).Release(context.Background(), handle))
		assert.Equal(t, []any{"/cmdb/host", "owner-1"}, db.calls[0].args)
	})

	t.Run("missing row is not held", func(t *testing.T) {
		t.Parallel()

		db := &fakeDB{results: []execResult{{tag: pgconn.NewCommandTag("DELETE 0")}}}
		require.ErrorIs(t, New(db).Release(context.Background(), handle), lock.ErrNotHeld)
	})

	t.Run("propagates errors", func(t *testing.T) {
		t.Parallel()

		db := &fakeDB{results: []execResult{{err: errors.New("connection reset")}}}
		require.Error(t, New(db).Release(context.Background(), handle))
	})
}

func TestService_Ping(t *testing.T) {
	t.Parallel()

	require.NoError(t, New(&fakeDB{}).Ping(context.Background()))
	require.Error(t, New(&fakeDB{pingErr: errors.New("down")}).Ping(context.Background()))
}

func TestService_Integration(t *testing.T) {
	database.SkipUnlessIntegration(t)
	t.Parallel()

	pool, _ := database.SetupTestDB(t)
	ctx := context.Background()
	s := New(pool)

	t.Run("contention and release", func(t *testing.T) {
		handle, err := s.Acquire(ctx, "/cmdb/host")
		require.NoError(t, err)

		_, err = s.Acquire(ctx, "/cmdb/host")
		require.ErrorIs(t, err, lock.ErrLockContention)

		require.NoError(t, s.Release(ctx, handle))

		var rows int
		require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM registry_locks WHERE path = $1`, "/cmdb/host").Scan(&rows))
		assert.Zero(t, rows)
	})

	t.Run("concurrent acquisition", func(t *testing.T) {
		const workers = 8
		var acquired, contended atomic.Int32
		g, gctx := errgroup.WithContext(ctx)
		for range workers {
			g.Go(func() error {
				_, err := s.Acquire(gctx, "/cmdb/rack")
				switch {
				case err == nil:
					acquired.Add(1)
				case errors.Is(err, lock.ErrLockContention):
					contended.Add(1)
				default:
					return err
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())
		assert.Equal(t, int32(1), acquired.Load())
		assert.Equal(t, int32(workers-1), contended.Load())
	})

	t.Run("stale rows expire", func(t *testing.T) {
		_, err := pool.Exec(ctx,
			`INSERT INTO registry_locks (path, owner, acquired_at) VALUES ($1, 'crashed', now() - interval '1 hour')`,
			"/cmdb/disk")
		require.NoError(t, err)

		handle, err := New(pool, WithStaleAfter(time.Minute)).Acquire(ctx, "/cmdb/disk")
		require.NoError(t, err)
		require.NoError(t, s.Release(ctx, handle))
	})
}
