package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	migrate "github.com/rubenv/sql-migrate"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrations embed.FS

// Open opens the SQLite database at path and brings its schema up to date.
// ":memory:" is accepted for tests.
// POST: WAL mode enabled, all migrations applied
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// database/sql pools connections; an in-memory database exists per
	// connection, so tests must stay on one.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := InitDB(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitDB configures the connection and applies pending migrations.
// PRE: db is a valid database connection
// POST: All tables are created, WAL mode enabled
func InitDB(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}
	n, err := Migrate(db, migrate.Up)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("migrations_applied", "count", n)
	}
	return nil
}

// Migrate runs the embedded migrations in direction and returns how many
// were applied.
func Migrate(db *sql.DB, direction migrate.MigrationDirection) (int, error) {
	source := migrate.AssetMigrationSource{
		Asset: migrations.ReadFile,
		AssetDir: func(path string) ([]string, error) {
			entries, err := migrations.ReadDir(path)
			if err != nil {
				return nil, err
			}
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				names = append(names, e.Name())
			}
			return names, nil
		},
		Dir: "migrations",
	}
	n, err := migrate.Exec(db, "sqlite3", source, direction)
	if err != nil {
		return n, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return n, nil
}
