// Package vectorstore persists processed documents and their chunk
// embeddings in SQLite and serves similarity queries for the jandocs
// document scheduler.
//
// connection.go implements the SQLite connection molecule: a WAL-mode
// connection with busy timeout and foreign keys enabled, restricted to a
// single writer.
package vectorstore

import (
	"database/sql"
	"fmt"
	"time"

	// SQLite driver (pure Go, no CGO required)
	_ "modernc.org/sqlite"
)

// ConnectionConfig holds configuration for the SQLite connection.
type ConnectionConfig struct {
	// Path is the database file path
	Path string

	// BusyTimeout is how long to wait for locks (milliseconds)
	BusyTimeout int

	// MaxOpenConns limits concurrent connections (SQLite handles
	// concurrency best with a single writer)
	MaxOpenConns int

	// MaxIdleConns limits idle connections in the pool
	MaxIdleConns int

	// ConnMaxLifetime limits how long a connection can be reused (0 = no limit)
	ConnMaxLifetime time.Duration
}

// DefaultConnectionConfig returns SQLite settings tuned for the vector
// store: WAL mode, 5s lock wait, one connection reused for everything.
func DefaultConnectionConfig(path string) ConnectionConfig {
	return ConnectionConfig{
		Path:            path,
		BusyTimeout:     5000,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 0,
	}
}

// openConnection opens a SQLite connection with WAL mode enabled.
//
// The pool is capped to a single connection before the pragmas run, so
// busy_timeout and foreign_keys (both per-connection settings) bind to
// the one connection every later statement reuses. CASCADE deletes on
// the chunks table depend on foreign_keys staying enabled.
func openConnection(config ConnectionConfig) (*sql.DB, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// modernc.org/sqlite uses a plain path as DSN
	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []struct {
		name  string
		query string
	}{
		{"journal_mode", "PRAGMA journal_mode=WAL"},
		{"busy_timeout", fmt.Sprintf("PRAGMA busy_timeout=%d", config.BusyTimeout)},
		{"foreign_keys", "PRAGMA foreign_keys=ON"},
	}

	for _, p := range pragmas {
		if _, err := db.Exec(p.query); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set %s pragma: %w", p.name, err)
		}
	}

	// Verify WAL mode was enabled (some filesystems prevent it)
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		db.Close()
		return nil, fmt.Errorf("WAL mode not enabled, got: %s", journalMode)
	}

	return db, nil
}
