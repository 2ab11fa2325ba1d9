package storage

import (
	"database/sql"
	"path/filepath"
	"slices"
	"testing"

	migrate "github.com/rubenv/sql-migrate"
)

// getTableNames returns sorted table names from sqlite_master, excluding internal tables.
func getTableNames(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan table name: %v", err)
		}
		names = append(names, name)
	}
	return names
}

// expectedTables is the sorted list of tables after all migrations.
var expectedTables = []string{"gorp_migrations", "session"}

// TestOpen_Fresh verifies the migrations apply cleanly to an empty database.
func TestOpen_Fresh(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if got := getTableNames(t, db); !slices.Equal(got, expectedTables) {
		t.Errorf("tables = %v, want %v", got, expectedTables)
	}
}

// TestMigrate_Idempotent verifies a second run applies nothing and keeps data.
func TestMigrate_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, err = db.Exec(`INSERT INTO session (id_hash, created_at, updated_at) VALUES ('h1', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	n, err := Migrate(db, migrate.Up)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if n != 0 {
		t.Errorf("applied %d migrations on an up-to-date schema", n)
	}
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM session").Scan(&count); err != nil || count != 1 {
		t.Errorf("session rows = %d (%v), want 1", count, err)
	}
}

// TestMigrate_Down verifies the down migration removes the session table.
func TestMigrate_Down(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	if _, err := Migrate(db, migrate.Down); err != nil {
		t.Fatalf("Migrate down: %v", err)
	}
	if got := getTableNames(t, db); slices.Contains(got, "session") {
		t.Errorf("session table survived down migration: %v", got)
	}
}
