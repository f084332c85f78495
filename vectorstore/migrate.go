// Package vectorstore persists processed documents and their chunk
// embeddings in SQLite and serves similarity queries for the jandocs
// document scheduler.
//
// migrate.go runs the embedded schema migrations. The SQL files under
// migrations/ are compiled into the binary, so a fresh database reaches
// the current schema without any files on disk.
package vectorstore

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// runMigrations applies all pending migrations to the database at path.
// It opens its own short-lived connection because the migrator takes
// ownership of the connection it is given and closes it when done.
//
// A database that is already at the current schema is not an error.
func runMigrations(path string) error {
	db, err := openConnection(DefaultConnectionConfig(path))
	if err != nil {
		return fmt.Errorf("failed to open database for migration: %w", err)
	}

	m, err := newMigrator(db)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			// No pending migrations is not an error
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// migrationVersion returns the current schema version and dirty state for
// the database at path. A database with no applied migrations reports
// version 0. The dirty flag indicates a migration failed partway through
// and needs manual repair.
func migrationVersion(path string) (uint, bool, error) {
	db, err := openConnection(DefaultConnectionConfig(path))
	if err != nil {
		return 0, false, fmt.Errorf("failed to open database: %w", err)
	}

	m, err := newMigrator(db)
	if err != nil {
		db.Close()
		return 0, false, fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			// No migrations applied yet
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}

	return version, dirty, nil
}

// newMigrator creates a migrate.Migrate instance backed by the embedded
// migration files.
//
// Note: the returned migrator takes ownership of the database connection.
// When migrator.Close() is called, the connection is also closed.
func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	if db == nil {
		return nil, errors.New("database connection is required")
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{
		DatabaseName: "main",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return m, nil
}
