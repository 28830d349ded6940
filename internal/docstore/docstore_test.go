package docstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"refind/internal/chunker"
	"refind/internal/index"
	"refind/internal/paper"
	"refind/internal/service"
	"refind/internal/vectorstore"
)

// fixedEmbedder returns the same vector for everything, or fails.
type fixedEmbedder struct {
	fail bool
}

func (e *fixedEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if e.fail {
		return nil, fmt.Errorf("embedding backend down")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func newTestStore(embedder index.Embedder) *Store {
	vs := vectorstore.NewMemoryStore()
	counter := 0
	factory := func(ctx context.Context, label string) (*index.Index, error) {
		counter++
		return index.New(ctx, vs, embedder, fmt.Sprintf("%s-%d", label, counter), 3)
	}
	return New(chunker.New(2, 0), factory, nil, nil)
}

func testMetadata() *paper.Metadata {
	return &paper.Metadata{
		Title:    "A Paper",
		Abstract: "One line of abstract.",
		Sections: []paper.Section{
			{Title: "Intro", Content: "line one\nline two\nline three"},
		},
		References: []*paper.ReferenceRecord{
			{Title: "First Cited", DOI: "10.1/a"},
			{Title: "Second Cited"},
			{Title: "First Cited", DOI: "10.1/a"}, // duplicate
		},
	}
}

func TestStore_Load(t *testing.T) {
	store := newTestStore(&fixedEmbedder{})
	ctx := context.Background()

	if _, err := store.Current(); !errors.Is(err, service.ErrNoActiveDocument) {
		t.Fatalf("Current() before load error = %v, want ErrNoActiveDocument", err)
	}

	if err := store.Load(ctx, testMetadata()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if store.Epoch() != 1 {
		t.Errorf("Epoch() = %d, want 1", store.Epoch())
	}

	current, err := store.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if current.Title != "A Paper" {
		t.Errorf("Current().Title = %q", current.Title)
	}
	// Duplicate references collapse into one record.
	if len(current.References) != 2 {
		t.Fatalf("got %d references, want 2", len(current.References))
	}
	for _, ref := range current.References {
		if ref.Status != paper.StatusNotStarted {
			t.Errorf("reference %q status = %q, want not_started", ref.Title, ref.Status)
		}
		if ref.RefID == "" {
			t.Errorf("reference %q has empty ref_id", ref.Title)
		}
	}

	primary, err := store.PrimaryIndex()
	if err != nil {
		t.Fatalf("PrimaryIndex() error = %v", err)
	}
	if primary.Len() == 0 {
		t.Error("primary index is empty after load")
	}
}

func TestStore_FailedLoadKeepsPreviousPaper(t *testing.T) {
	embedder := &fixedEmbedder{}
	store := newTestStore(embedder)
	ctx := context.Background()

	if err := store.Load(ctx, testMetadata()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	embedder.fail = true
	err := store.Load(ctx, &paper.Metadata{Title: "Broken", Abstract: "x"})
	if err == nil {
		t.Fatal("Load() expected error when embedding fails")
	}
	if !errors.Is(err, service.ErrExternalService) {
		t.Errorf("Load() error = %v, want ErrExternalService", err)
	}

	current, err := store.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if current.Title != "A Paper" {
		t.Errorf("previous paper lost: Current().Title = %q", current.Title)
	}
	if store.Epoch() != 1 {
		t.Errorf("Epoch() = %d, want 1 (failed load must not advance)", store.Epoch())
	}
}

func TestStore_StatusTransitionsAndEpochGuard(t *testing.T) {
	store := newTestStore(&fixedEmbedder{})
	ctx := context.Background()

	if err := store.Load(ctx, testMetadata()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	refs, err := store.References()
	if err != nil {
		t.Fatalf("References() error = %v", err)
	}
	refID := refs[0].RefID
	epoch := store.Epoch()

	if err := store.SetReferenceStatus(refID, paper.StatusPending, epoch); err != nil {
		t.Fatalf("SetReferenceStatus(pending) error = %v", err)
	}
	// Skipping processing is an illegal transition.
	if err := store.SetReferenceStatus(refID, paper.StatusProcessed, epoch); err == nil {
		t.Error("SetReferenceStatus(pending -> processed) expected error")
	}
	if err := store.SetReferenceStatus(refID, paper.StatusProcessing, epoch); err != nil {
		t.Fatalf("SetReferenceStatus(processing) error = %v", err)
	}

	// A new load invalidates the captured epoch.
	if err := store.Load(ctx, testMetadata()); err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	err = store.SetReferenceStatus(refID, paper.StatusProcessed, epoch)
	if !errors.Is(err, service.ErrStaleEpoch) {
		t.Errorf("SetReferenceStatus with stale epoch error = %v, want ErrStaleEpoch", err)
	}

	// After the reload, the reference is back to not_started.
	ref, err := store.GetReference(refID)
	if err != nil {
		t.Fatalf("GetReference() error = %v", err)
	}
	if ref.Status != paper.StatusNotStarted {
		t.Errorf("status after reload = %q, want not_started", ref.Status)
	}
}

func TestStore_ReferenceIndexGating(t *testing.T) {
	store := newTestStore(&fixedEmbedder{})
	ctx := context.Background()

	if err := store.Load(ctx, testMetadata()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	refs, _ := store.References()
	refID := refs[0].RefID
	epoch := store.Epoch()

	if _, err := store.ReferenceIndex(refID); !errors.Is(err, service.ErrNotIndexed) {
		t.Errorf("ReferenceIndex() before processing error = %v, want ErrNotIndexed", err)
	}
	if _, err := store.ReferenceIndex("unknown"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("ReferenceIndex(unknown) error = %v, want ErrNotFound", err)
	}
	if _, err := store.ReferenceContent(refID); !errors.Is(err, service.ErrNotIndexed) {
		t.Errorf("ReferenceContent() before processing error = %v, want ErrNotIndexed", err)
	}

	// Walk the reference through its lifecycle.
	idx, err := store.newIndex(ctx, refID)
	if err != nil {
		t.Fatalf("newIndex() error = %v", err)
	}
	if err := idx.Add(ctx, []chunker.Chunk{{Text: "ref text", Index: 0, StartLine: 1, EndLine: 1, Section: "Body", OwnerRefID: refID}}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	for _, status := range []paper.ReferenceStatus{paper.StatusPending, paper.StatusProcessing} {
		if err := store.SetReferenceStatus(refID, status, epoch); err != nil {
			t.Fatalf("SetReferenceStatus(%s) error = %v", status, err)
		}
	}
	if err := store.AttachReferenceIndex(refID, idx, epoch); err != nil {
		t.Fatalf("AttachReferenceIndex() error = %v", err)
	}
	if err := store.SetReferenceStatus(refID, paper.StatusProcessed, epoch); err != nil {
		t.Fatalf("SetReferenceStatus(processed) error = %v", err)
	}

	got, err := store.ReferenceIndex(refID)
	if err != nil {
		t.Fatalf("ReferenceIndex() error = %v", err)
	}
	if got.Len() != 1 {
		t.Errorf("reference index Len() = %d, want 1", got.Len())
	}

	content, err := store.ReferenceContent(refID)
	if err != nil {
		t.Fatalf("ReferenceContent() error = %v", err)
	}
	if len(content.Chunks) != 1 || content.Chunks[0].OwnerRefID != refID {
		t.Errorf("ReferenceContent() chunks = %+v", content.Chunks)
	}

	processed := store.ProcessedReferences()
	if len(processed) != 1 || processed[0].Ref.RefID != refID {
		t.Errorf("ProcessedReferences() = %+v", processed)
	}
}

func TestStore_AttachReferenceIndexStaleEpoch(t *testing.T) {
	store := newTestStore(&fixedEmbedder{})
	ctx := context.Background()

	if err := store.Load(ctx, testMetadata()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	refs, _ := store.References()
	refID := refs[0].RefID
	stale := store.Epoch()

	if err := store.Load(ctx, testMetadata()); err != nil {
		t.Fatalf("second Load() error = %v", err)
	}

	idx, _ := store.newIndex(ctx, refID)
	if err := store.AttachReferenceIndex(refID, idx, stale); !errors.Is(err, service.ErrStaleEpoch) {
		t.Errorf("AttachReferenceIndex stale epoch error = %v, want ErrStaleEpoch", err)
	}
}
