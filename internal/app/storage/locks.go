package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stacklok/cmdb-registry-server/internal/config"
	"github.com/stacklok/cmdb-registry-server/internal/lock"
	"github.com/stacklok/cmdb-registry-server/internal/lock/file"
	"github.com/stacklok/cmdb-registry-server/internal/lock/memory"
	"github.com/stacklok/cmdb-registry-server/internal/lock/postgres"
)

// CreateLockService creates the configured lock backend
func (f *BackendFactory) CreateLockService(_ context.Context) (lock.Service, error) {
	lockType := f.config.Lock.GetType()
	slog.Info("Creating lock service", "type", lockType)

	switch lockType {
	case config.LockTypeMemory:
		return memory.New(), nil

	case config.LockTypeFile:
		svc, err := file.New(f.config.Lock.GetRootPath())
		if err != nil {
			return nil, fmt.Errorf("failed to create file lock service: %w", err)
		}
		f.closers = append(f.closers, svc)
		return svc, nil

	case config.LockTypePostgres:
		if f.pool == nil {
			return nil, fmt.Errorf("postgres lock requires a database connection")
		}
		return postgres.New(f.pool, postgres.WithStaleAfter(f.config.Lock.GetStaleAfter())), nil

	default:
		return nil, fmt.Errorf("unknown lock type: %s", lockType)
	}
}
