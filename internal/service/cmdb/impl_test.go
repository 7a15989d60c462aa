package cmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/stacklok/cmdb-registry-server/internal/lock"
	lockmemory "github.com/stacklok/cmdb-registry-server/internal/lock/memory"
	lockmocks "github.com/stacklok/cmdb-registry-server/internal/lock/mocks"
	"github.com/stacklok/cmdb-registry-server/internal/model"
	"github.com/stacklok/cmdb-registry-server/internal/service"
	"github.com/stacklok/cmdb-registry-server/internal/store"
	storememory "github.com/stacklok/cmdb-registry-server/internal/store/memory"
	storemocks "github.com/stacklok/cmdb-registry-server/internal/store/mocks"
	"github.com/stacklok/cmdb-registry-server/internal/telemetry"
	"github.com/stacklok/cmdb-registry-server/internal/validators"
)

func hostPayload() map[string]any {
	return map[string]any{
		"name": "host",
		"pk":   "id",
		"fields": []any{
			map[string]any{"name": "id", "type": "string", "require": true, "multi": false, "unique": true},
			map[string]any{"name": "ip", "type": "ip", "require": false, "multi": true, "unique": true},
		},
	}
}

type fixture struct {
	svc   service.RegistryService
	store *storememory.Store
	locks *lockmemory.Service
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{store: storememory.New(), locks: lockmemory.New()}
	svc, err := New(append([]Option{
		WithStore(f.store),
		WithCoordinator(lock.NewCoordinator(f.locks)),
	}, opts...)...)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := New()
	require.Error(t, err)

	_, err = New(WithStore(storememory.New()))
	require.ErrorContains(t, err, "lock coordinator is required")

	_, err = New(WithStore(nil))
	require.ErrorContains(t, err, "store is required")
}

func TestDefineSchema(t *testing.T) {
	t.Parallel()

	t.Run("stores a new schema and releases the lock", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		result, err := f.svc.DefineSchema(context.Background(), hostPayload())
		require.NoError(t, err)
		assert.Equal(t, "host", result.Name)
		assert.Empty(t, result.Warnings)
		assert.NotNil(t, result.Warnings)

		schema, err := store.LoadSchema(context.Background(), f.store, "host")
		require.NoError(t, err)
		assert.Equal(t, "id", schema.PK)
		assert.Len(t, schema.Fields, 2)
		assert.False(t, f.locks.Held("/cmdb/host"))
	})

	t.Run("reports normalized flags", func(t *testing.T) {
		t.Parallel()

		payload := map[string]any{
			"name":   "rack",
			"pk":     "id",
			"fields": []any{map[string]any{"name": "id", "type": "string", "unique": "yes"}},
		}
		result, err := newFixture(t).svc.DefineSchema(context.Background(), payload)
		require.NoError(t, err)
		assert.Len(t, result.Warnings, 3)
	})

	t.Run("extends an existing schema", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, err := f.svc.DefineSchema(context.Background(), hostPayload())
		require.NoError(t, err)

		extended := hostPayload()
		extended["fields"] = append(extended["fields"].([]any),
			map[string]any{"name": "os", "type": "string", "require": false, "multi": false, "unique": false})
		_, err = f.svc.DefineSchema(context.Background(), extended)
		require.NoError(t, err)

		schema, err := f.svc.GetSchema(context.Background(), "host")
		require.NoError(t, err)
		assert.True(t, schema.HasField("os"))
	})

	t.Run("rejects a changed field and releases the lock", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, err := f.svc.DefineSchema(context.Background(), hostPayload())
		require.NoError(t, err)

		changed := hostPayload()
		changed["fields"].([]any)[1].(map[string]any)["type"] = "string"
		_, err = f.svc.DefineSchema(context.Background(), changed)

		var schemaErr *validators.SchemaError
		require.ErrorAs(t, err, &schemaErr)
		assert.Equal(t, validators.KindFieldNotSameAsOrigin, schemaErr.Kind)
		assert.False(t, f.locks.Held("/cmdb/host"))
	})

	t.Run("decoding failures never take the lock", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		locks := lockmocks.NewMockService(ctrl)
		svc, err := New(WithStore(storememory.New()), WithCoordinator(lock.NewCoordinator(locks)))
		require.NoError(t, err)

		_, err = svc.DefineSchema(context.Background(), map[string]any{"pk": "id"})
		require.ErrorIs(t, err, model.ErrMissingName)

		_, err = svc.DefineSchema(context.Background(), map[string]any{"name": "bad name"})
		var schemaErr *validators.SchemaError
		require.ErrorAs(t, err, &schemaErr)
		assert.Equal(t, validators.KindInvalidName, schemaErr.Kind)

		_, err = svc.DefineSchema(context.Background(), map[string]any{"name": ""})
		require.ErrorAs(t, err, &schemaErr)
		assert.Equal(t, validators.KindInvalidName, schemaErr.Kind)
	})

	t.Run("store failures propagate", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		s := storemocks.NewMockStore(ctrl)
		s.EXPECT().HeadCollection(gomock.Any(), "host").Return(false, nil)
		s.EXPECT().PutSchema(gomock.Any(), gomock.Any()).Return(store.NewError("put-schema", "host", 500, errors.New("boom")))

		locks := lockmemory.New()
		svc, err := New(WithStore(s), WithCoordinator(lock.NewCoordinator(locks)))
		require.NoError(t, err)

		_, err = svc.DefineSchema(context.Background(), hostPayload())
		var storeErr *store.Error
		require.ErrorAs(t, err, &storeErr)
		assert.False(t, locks.Held("/cmdb/host"))
	})
}

// blockingStore holds PutSchema until released
type blockingStore struct {
	*storememory.Store
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) PutSchema(ctx context.Context, schema *model.Schema) error {
	close(b.entered)
	<-b.release
	return b.Store.PutSchema(ctx, schema)
}

func TestDefineSchema_ConcurrentSameName(t *testing.T) {
	t.Parallel()

	bs := &blockingStore{Store: storememory.New(), entered: make(chan struct{}), release: make(chan struct{})}
	locks := lockmemory.New()
	svc, err := New(WithStore(bs), WithCoordinator(lock.NewCoordinator(locks)))
	require.NoError(t, err)

	first := make(chan error, 1)
	go func() {
		_, err := svc.DefineSchema(context.Background(), hostPayload())
		first <- err
	}()

	select {
	case <-bs.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first definition did not reach the store")
	}

	_, err = svc.DefineSchema(context.Background(), hostPayload())
	require.ErrorIs(t, err, lock.ErrLockContention)

	// Other names are not blocked
	_, err = svc.CreateEntity(context.Background(), "rack", map[string]any{"id": "r1"})
	require.ErrorIs(t, err, service.ErrSchemaNotFound)

	close(bs.release)
	require.NoError(t, <-first)
	assert.False(t, locks.Held("/cmdb/host"))
}

func TestCreateEntity(t *testing.T) {
	t.Parallel()

	define := func(t *testing.T) *fixture {
		t.Helper()
		f := newFixture(t)
		_, err := f.svc.DefineSchema(context.Background(), hostPayload())
		require.NoError(t, err)
		return f
	}

	t.Run("stores the entity without metadata", func(t *testing.T) {
		t.Parallel()

		f := define(t)
		result, err := f.svc.CreateEntity(context.Background(), "host", map[string]any{
			"id":    "web01",
			"ip":    []any{"10.0.0.1"},
			"_meta": map[string]any{"source": "import"},
		})
		require.NoError(t, err)
		assert.Equal(t, &service.CreateEntityResult{Schema: "host", Key: "web01"}, result)

		doc, err := f.svc.GetEntity(context.Background(), "host", "web01")
		require.NoError(t, err)
		assert.NotContains(t, doc.Source, model.MetaKey)
		assert.False(t, f.locks.Held("/cmdb/host"))
	})

	t.Run("updating the same entity passes uniqueness", func(t *testing.T) {
		t.Parallel()

		f := define(t)
		entity := map[string]any{"id": "web01", "ip": []any{"10.0.0.1"}}
		_, err := f.svc.CreateEntity(context.Background(), "host", entity)
		require.NoError(t, err)
		_, err = f.svc.CreateEntity(context.Background(), "host", entity)
		require.NoError(t, err)
	})

	t.Run("unique value taken by another entity", func(t *testing.T) {
		t.Parallel()

		f := define(t)
		_, err := f.svc.CreateEntity(context.Background(), "host", map[string]any{"id": "web01", "ip": []any{"10.0.0.1"}})
		require.NoError(t, err)

		_, err = f.svc.CreateEntity(context.Background(), "host", map[string]any{"id": "web02", "ip": []any{"10.0.0.1"}})
		var entityErr *validators.EntityError
		require.ErrorAs(t, err, &entityErr)
		assert.Equal(t, validators.KindUniquenessViolation, entityErr.Kind)
		assert.False(t, f.locks.Held("/cmdb/host"))
	})

	t.Run("unknown schema", func(t *testing.T) {
		t.Parallel()

		_, err := newFixture(t).svc.CreateEntity(context.Background(), "host", map[string]any{"id": "web01"})
		require.ErrorIs(t, err, service.ErrSchemaNotFound)
	})

	t.Run("invalid schema name never takes the lock", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		svc, err := New(WithStore(storememory.New()), WithCoordinator(lock.NewCoordinator(lockmocks.NewMockService(ctrl))))
		require.NoError(t, err)

		_, err = svc.CreateEntity(context.Background(), "ho-st", map[string]any{"id": "web01"})
		var schemaErr *validators.SchemaError
		require.ErrorAs(t, err, &schemaErr)
	})

	t.Run("contention", func(t *testing.T) {
		t.Parallel()

		f := define(t)
		handle, err := f.locks.Acquire(context.Background(), "/cmdb/host")
		require.NoError(t, err)
		t.Cleanup(func() { _ = f.locks.Release(context.Background(), handle) })

		_, err = f.svc.CreateEntity(context.Background(), "host", map[string]any{"id": "web01", "ip": []any{}})
		require.ErrorIs(t, err, lock.ErrLockContention)
	})
}

func TestReads(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.GetSchema(context.Background(), "host")
	require.ErrorIs(t, err, service.ErrSchemaNotFound)

	_, err = f.svc.GetEntity(context.Background(), "host", "web01")
	require.ErrorIs(t, err, service.ErrEntityNotFound)

	require.NoError(t, f.store.PutEntity(context.Background(), "host", "web01", map[string]any{"id": "web01", "cores": json.Number("4")}))
	doc, err := f.svc.GetEntity(context.Background(), "host", "web01")
	require.NoError(t, err)
	assert.Equal(t, json.Number("4"), doc.Source["cores"])
}

func TestCheckReadiness(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	s := storemocks.NewMockStore(ctrl)
	locks := lockmocks.NewMockService(ctrl)

	svc, err := New(WithStore(s), WithCoordinator(lock.NewCoordinator(locks)))
	require.NoError(t, err)

	s.EXPECT().Ping(gomock.Any()).Return(nil)
	locks.EXPECT().Ping(gomock.Any()).Return(nil)
	require.NoError(t, svc.CheckReadiness(context.Background()))

	storeErr := errors.New("cluster red")
	lockErr := errors.New("lock dir missing")
	s.EXPECT().Ping(gomock.Any()).Return(storeErr)
	locks.EXPECT().Ping(gomock.Any()).Return(lockErr)
	err = svc.CheckReadiness(context.Background())
	require.ErrorIs(t, err, storeErr)
	require.ErrorIs(t, err, lockErr)
}

func TestMutationMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	mutations, err := telemetry.NewMutationMetrics(provider)
	require.NoError(t, err)
	lockMetrics, err := telemetry.NewLockMetrics(provider)
	require.NoError(t, err)

	f := newFixture(t, WithMutationMetrics(mutations), WithLockMetrics(lockMetrics))
	ctx := context.Background()

	_, err = f.svc.DefineSchema(ctx, hostPayload())
	require.NoError(t, err)

	handle, err := f.locks.Acquire(ctx, "/cmdb/host")
	require.NoError(t, err)
	_, err = f.svc.DefineSchema(ctx, hostPayload())
	require.ErrorIs(t, err, lock.ErrLockContention)
	require.NoError(t, f.locks.Release(ctx, handle))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	outcomes := map[string]uint64{}
	var contention int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					outcome, _ := dp.Attributes.Value("outcome")
					outcomes[outcome.AsString()] += dp.Count
				}
			case metricdata.Sum[int64]:
				if m.Name == "cmdb_lock_contention_total" {
					for _, dp := range data.DataPoints {
						contention += dp.Value
					}
				}
			}
		}
	}
	assert.Equal(t, map[string]uint64{telemetry.OutcomeSuccess: 1, telemetry.OutcomeLocked: 1}, outcomes)
	assert.Equal(t, int64(1), contention)
}

func TestOutcome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: telemetry.OutcomeSuccess},
		{err: fmt.Errorf("%w: /cmdb/host", lock.ErrLockContention), want: telemetry.OutcomeLocked},
		{err: &validators.SchemaError{Kind: validators.KindPKChanged}, want: telemetry.OutcomeRejected},
		{err: &validators.EntityError{Kind: validators.KindNotMulti}, want: telemetry.OutcomeRejected},
		{err: &model.DecodeError{Path: "fields"}, want: telemetry.OutcomeRejected},
		{err: model.ErrMissingName, want: telemetry.OutcomeRejected},
		{err: fmt.Errorf("%w: host", service.ErrSchemaNotFound), want: telemetry.OutcomeNotFound},
		{err: fmt.Errorf("failed to acquire lock: %w", context.DeadlineExceeded), want: telemetry.OutcomeCancelled},
		{err: store.NewError("put-entity", "host", 500, errors.New("boom")), want: telemetry.OutcomeError},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Outcome(tt.err))
		})
	}
}
