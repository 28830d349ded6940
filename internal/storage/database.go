// Package storage persists paper snapshots and processed reference
// content in SQLite, so a restart can report what was ingested before.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// New opens the SQLite database at dbPath and verifies connectivity.
func New(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; keep the pool small.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Migrate creates the schema. Safe to run on every startup.
func Migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS papers (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		metadata    TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS reference_contents (
		ref_id      TEXT NOT NULL,
		paper_id    TEXT NOT NULL REFERENCES papers(id) ON DELETE CASCADE,
		title       TEXT NOT NULL,
		content     TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (ref_id, paper_id)
	);

	CREATE INDEX IF NOT EXISTS idx_reference_contents_paper
		ON reference_contents(paper_id);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
