package storage

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// New opens a SQLite database connection at the given path.
// It enables foreign keys and sets connection pool settings.
func New(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys (disabled by default in SQLite)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate runs database migrations to create the required tables.
// It is idempotent and can be run multiple times safely.
func Migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS sources (
			source_key TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			pages INTEGER NOT NULL,
			segment_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			point_id TEXT PRIMARY KEY,
			chunk_id INTEGER NOT NULL UNIQUE,
			source_key TEXT NOT NULL,
			source TEXT NOT NULL,
			page INTEGER NOT NULL,
			block_type TEXT NOT NULL,
			text TEXT NOT NULL,
			FOREIGN KEY (source_key) REFERENCES sources(source_key) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_source_key ON chunks(source_key);`,
		`CREATE TABLE IF NOT EXISTS routing_segments (
			point_id TEXT PRIMARY KEY,
			source_key TEXT NOT NULL,
			segment_index INTEGER NOT NULL,
			text TEXT NOT NULL,
			FOREIGN KEY (source_key) REFERENCES sources(source_key) ON DELETE CASCADE
		);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
