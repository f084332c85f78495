package vectorstore

import (
	"path/filepath"
	"testing"
)

func TestRunMigrations_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")

	if err := runMigrations(path); err != nil {
		t.Fatalf("runMigrations() returned error: %v", err)
	}

	db, err := openConnection(DefaultConnectionConfig(path))
	if err != nil {
		t.Fatalf("openConnection() returned error: %v", err)
	}
	defer db.Close()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' ORDER BY name")
	if err != nil {
		t.Fatalf("failed to list tables: %v", err)
	}
	defer rows.Close()

	tables := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan table name: %v", err)
		}
		tables[name] = true
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("error iterating tables: %v", err)
	}

	for _, want := range []string{"documents", "chunks", "schema_migrations"} {
		if !tables[want] {
			t.Errorf("table %q missing after migration, got %v", want, tables)
		}
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")

	if err := runMigrations(path); err != nil {
		t.Fatalf("first runMigrations() returned error: %v", err)
	}
	if err := runMigrations(path); err != nil {
		t.Errorf("second runMigrations() returned error: %v", err)
	}
}

func TestMigrationVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")

	version, dirty, err := migrationVersion(path)
	if err != nil {
		t.Fatalf("migrationVersion() before migrating returned error: %v", err)
	}
	if version != 0 || dirty {
		t.Errorf("fresh database version = %d (dirty %v), want 0 (clean)", version, dirty)
	}

	if err := runMigrations(path); err != nil {
		t.Fatalf("runMigrations() returned error: %v", err)
	}

	version, dirty, err = migrationVersion(path)
	if err != nil {
		t.Fatalf("migrationVersion() returned error: %v", err)
	}
	if version != 1 {
		t.Errorf("version = %d, want 1", version)
	}
	if dirty {
		t.Error("dirty = true, want clean")
	}
}
