// Package store archives IBR results and governor alerts in SQLite.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DB wraps the database connection
type DB struct {
	*sqlx.DB
	path string
}

// Open opens or creates the database at path and runs migrations.
func Open(path string) (*DB, error) {
	if path == "" {
		path = "biotica.db"
	}

	dsn := MemoryPath
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_foreign_keys=on"
	}

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writers; a single connection also keeps an
	// in-memory database alive for the lifetime of the handle.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &DB{DB: db, path: path}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return d, nil
}

// Path returns the database file path
func (d *DB) Path() string {
	return d.path
}

func (d *DB) migrate() error {
	migrations := []string{
		migrationResults,
		migrationAlerts,
		migrationIndexes,
	}
	for _, m := range migrations {
		if _, err := d.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

const migrationResults = `
CREATE TABLE IF NOT EXISTS results (
    id TEXT PRIMARY KEY,
    plot_id TEXT NOT NULL DEFAULT '',
    biome TEXT NOT NULL DEFAULT '',
    score REAL NOT NULL,
    normalized_score REAL NOT NULL,
    classification TEXT NOT NULL,
    uncertainty REAL NOT NULL,
    confidence REAL NOT NULL,
    n_warnings INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    result_data TEXT NOT NULL
);`

const migrationAlerts = `
CREATE TABLE IF NOT EXISTS alerts (
    id TEXT PRIMARY KEY,
    result_id TEXT NOT NULL DEFAULT '',
    plot_id TEXT NOT NULL DEFAULT '',
    action TEXT NOT NULL,
    score REAL NOT NULL,
    classification TEXT NOT NULL,
    warning_level INTEGER NOT NULL DEFAULT 0,
    velocity REAL NOT NULL DEFAULT 0,
    reason TEXT NOT NULL DEFAULT '',
    mitigation TEXT NOT NULL DEFAULT '',
    published INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);`

const migrationIndexes = `
CREATE INDEX IF NOT EXISTS idx_results_plot ON results(plot_id, created_at);
CREATE INDEX IF NOT EXISTS idx_results_class ON results(classification);
CREATE INDEX IF NOT EXISTS idx_alerts_plot ON alerts(plot_id, created_at);`
