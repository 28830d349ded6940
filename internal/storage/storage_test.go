package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"refind/internal/chunker"
	"refind/internal/paper"
)

func newTestDB(t *testing.T) (*PaperRepo, *ReferenceContentRepo) {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewPaperRepo(db), NewReferenceContentRepo(db)
}

func TestPaperRepo_SaveAndLatest(t *testing.T) {
	papers, _ := newTestDB(t)
	ctx := context.Background()

	if _, _, err := papers.Latest(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Latest() on empty db error = %v, want ErrNotFound", err)
	}

	meta := &paper.Metadata{
		Title: "First Paper",
		Sections: []paper.Section{
			{Title: "Intro", Content: "hello"},
		},
		References: []*paper.ReferenceRecord{
			{RefID: "ref-1", Title: "Cited Work", Status: paper.StatusNotStarted},
		},
	}
	if err := papers.Save(ctx, "paper-1", meta); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := papers.Save(ctx, "paper-2", &paper.Metadata{Title: "Second Paper"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	id, got, err := papers.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if id != "paper-2" || got.Title != "Second Paper" {
		t.Errorf("Latest() = (%q, %q)", id, got.Title)
	}
}

func TestPaperRepo_SaveIsUpsert(t *testing.T) {
	papers, _ := newTestDB(t)
	ctx := context.Background()

	if err := papers.Save(ctx, "paper-1", &paper.Metadata{Title: "v1"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := papers.Save(ctx, "paper-1", &paper.Metadata{Title: "v2"}); err != nil {
		t.Fatalf("Save() second time error = %v", err)
	}

	_, got, err := papers.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if got.Title != "v2" {
		t.Errorf("Latest().Title = %q, want v2", got.Title)
	}
}

func TestReferenceContentRepo_RoundTrip(t *testing.T) {
	papers, contents := newTestDB(t)
	ctx := context.Background()

	if err := papers.Save(ctx, "paper-1", &paper.Metadata{Title: "Host"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := contents.Get(ctx, "ref-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() missing ref error = %v, want ErrNotFound", err)
	}

	content := &ReferenceContent{
		RefID:   "ref-1",
		PaperID: "paper-1",
		Reference: paper.ReferenceRecord{
			RefID:  "ref-1",
			Title:  "Cited Work",
			Status: paper.StatusProcessed,
		},
		Chunks: []chunker.Chunk{
			{Text: "chunk one", Index: 0, StartLine: 1, EndLine: 40, Section: "Intro"},
			{Text: "chunk two", Index: 1, StartLine: 36, EndLine: 75, Section: "Intro"},
		},
	}
	if err := contents.Save(ctx, content); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := contents.Get(ctx, "ref-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Reference.Title != "Cited Work" || len(got.Chunks) != 2 {
		t.Errorf("Get() = %+v", got)
	}
	if got.Chunks[1].StartLine != 36 {
		t.Errorf("chunk line range not preserved: %+v", got.Chunks[1])
	}

	// Saving again replaces the content.
	content.Chunks = content.Chunks[:1]
	if err := contents.Save(ctx, content); err != nil {
		t.Fatalf("Save() upsert error = %v", err)
	}
	got, err = contents.Get(ctx, "ref-1")
	if err != nil {
		t.Fatalf("Get() after upsert error = %v", err)
	}
	if len(got.Chunks) != 1 {
		t.Errorf("Get() after upsert chunks = %d, want 1", len(got.Chunks))
	}
}
