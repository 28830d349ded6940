package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"refind/internal/chunker"
	"refind/internal/paper"
)

// ReferenceContent is the processed full text of one reference, stored as
// the chunks that were indexed for it.
type ReferenceContent struct {
	RefID     string                `json:"ref_id"`
	PaperID   string                `json:"paper_id"`
	Reference paper.ReferenceRecord `json:"metadata"`
	Chunks    []chunker.Chunk       `json:"chunks"`
}

// ReferenceContentRepo stores processed reference content.
type ReferenceContentRepo struct {
	db *sql.DB
}

func NewReferenceContentRepo(db *sql.DB) *ReferenceContentRepo {
	return &ReferenceContentRepo{db: db}
}

// Save upserts the processed content of one reference.
func (r *ReferenceContentRepo) Save(ctx context.Context, content *ReferenceContent) error {
	blob, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal reference content: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO reference_contents (ref_id, paper_id, title, content) VALUES (?, ?, ?, ?)
		 ON CONFLICT(ref_id, paper_id) DO UPDATE SET title = excluded.title, content = excluded.content`,
		content.RefID, content.PaperID, content.Reference.Title, string(blob))
	if err != nil {
		return fmt.Errorf("failed to save reference content: %w", err)
	}
	return nil
}

// Get returns the most recent stored content for a reference id.
func (r *ReferenceContentRepo) Get(ctx context.Context, refID string) (*ReferenceContent, error) {
	var blob string
	err := r.db.QueryRowContext(ctx,
		`SELECT content FROM reference_contents WHERE ref_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		refID,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load reference content: %w", err)
	}

	var content ReferenceContent
	if err := json.Unmarshal([]byte(blob), &content); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reference content: %w", err)
	}
	return &content, nil
}
