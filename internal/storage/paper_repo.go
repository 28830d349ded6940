package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"refind/internal/paper"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("record not found")

// PaperRepo stores uploaded paper snapshots.
type PaperRepo struct {
	db *sql.DB
}

func NewPaperRepo(db *sql.DB) *PaperRepo {
	return &PaperRepo{db: db}
}

// Save persists a snapshot of the parsed paper under the given id.
func (r *PaperRepo) Save(ctx context.Context, id string, meta *paper.Metadata) error {
	blob, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal paper metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO papers (id, title, metadata) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, metadata = excluded.metadata`,
		id, meta.Title, string(blob))
	if err != nil {
		return fmt.Errorf("failed to save paper: %w", err)
	}
	return nil
}

// Latest returns the most recently saved paper snapshot and its id.
func (r *PaperRepo) Latest(ctx context.Context) (string, *paper.Metadata, error) {
	var id, blob string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, metadata FROM papers ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	).Scan(&id, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, ErrNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to load latest paper: %w", err)
	}

	var meta paper.Metadata
	if err := json.Unmarshal([]byte(blob), &meta); err != nil {
		return "", nil, fmt.Errorf("failed to unmarshal paper metadata: %w", err)
	}
	return id, &meta, nil
}
