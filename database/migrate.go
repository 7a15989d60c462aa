package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
)

// MigrateUp applies all pending migrations
func MigrateUp(connString string) error {
	m, err := NewMigrator(connString)
	if err != nil {
		return err
	}
	defer func() { _ = closeMigrator(m) }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// MigrateDown reverts the given number of migrations; zero reverts all of them
func MigrateDown(connString string, steps uint) error {
	m, err := NewMigrator(connString)
	if err != nil {
		return err
	}
	defer func() { _ = closeMigrator(m) }()

	if steps == 0 {
		err = m.Down()
	} else {
		err = m.Steps(-int(steps))
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to revert migrations: %w", err)
	}
	return nil
}

// GetVersion returns the current migration version and whether the database is dirty
func GetVersion(connString string) (uint, bool, error) {
	m, err := NewMigrator(connString)
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = closeMigrator(m) }()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}
