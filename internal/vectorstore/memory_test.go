package vectorstore

import (
	"context"
	"testing"
)

func newTestCollection(t *testing.T) (*MemoryStore, string) {
	t.Helper()
	s := NewMemoryStore()
	if err := s.EnsureCollection(context.Background(), "test", 3); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
	return s, "test"
}

func TestMemoryStore_SearchEmptyCollection(t *testing.T) {
	s, col := newTestCollection(t)

	results, err := s.Search(context.Background(), col, []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search() on empty collection returned %d results, want 0", len(results))
	}
}

func TestMemoryStore_SearchTopKOrdering(t *testing.T) {
	s, col := newTestCollection(t)
	ctx := context.Background()

	points := []Point{
		{ID: "orthogonal", Vec: []float32{0, 1, 0}},
		{ID: "exact", Vec: []float32{1, 0, 0}},
		{ID: "close", Vec: []float32{1, 0.2, 0}},
	}
	if err := s.Upsert(ctx, col, points); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	results, err := s.Search(ctx, col, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	if results[0].PointID != "exact" {
		t.Errorf("top result = %q, want exact", results[0].PointID)
	}
	if results[1].PointID != "close" {
		t.Errorf("second result = %q, want close", results[1].PointID)
	}
	if results[0].Score < results[1].Score {
		t.Errorf("results not in descending score order: %v < %v", results[0].Score, results[1].Score)
	}
}

func TestMemoryStore_SearchStableTies(t *testing.T) {
	s, col := newTestCollection(t)
	ctx := context.Background()

	// Identical vectors: ties must keep insertion order.
	points := []Point{
		{ID: "first", Vec: []float32{1, 1, 0}},
		{ID: "second", Vec: []float32{1, 1, 0}},
		{ID: "third", Vec: []float32{1, 1, 0}},
	}
	if err := s.Upsert(ctx, col, points); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	results, err := s.Search(ctx, col, []float32{1, 1, 0}, 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	want := []string{"first", "second", "third"}
	for i, id := range want {
		if results[i].PointID != id {
			t.Errorf("result %d = %q, want %q", i, results[i].PointID, id)
		}
	}
}

func TestMemoryStore_RoundTripTop1(t *testing.T) {
	s, col := newTestCollection(t)
	ctx := context.Background()

	vec := []float32{0.3, 0.5, 0.8}
	if err := s.Upsert(ctx, col, []Point{
		{ID: "target", Vec: vec},
		{ID: "other", Vec: []float32{-0.3, 0.1, -0.9}},
	}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	results, err := s.Search(ctx, col, vec, 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].PointID != "target" {
		t.Fatalf("Search() = %+v, want target as top-1", results)
	}
	if results[0].Score < 0.9999 {
		t.Errorf("self-similarity = %v, want ~1.0", results[0].Score)
	}
}

func TestMemoryStore_DimensionChecks(t *testing.T) {
	s, col := newTestCollection(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, col, []Point{{ID: "bad", Vec: []float32{1, 2}}}); err == nil {
		t.Error("Upsert() with wrong dimension should fail")
	}
	if _, err := s.Search(ctx, col, []float32{1, 2}, 1); err == nil {
		t.Error("Search() with wrong query dimension should fail")
	}
	if err := s.EnsureCollection(ctx, col, 5); err == nil {
		t.Error("EnsureCollection() with mismatched size should fail")
	}
	if err := s.EnsureCollection(ctx, col, 3); err != nil {
		t.Errorf("EnsureCollection() with matching size should succeed, got %v", err)
	}
}

func TestMemoryStore_DropCollection(t *testing.T) {
	s, col := newTestCollection(t)
	ctx := context.Background()

	if err := s.DropCollection(ctx, col); err != nil {
		t.Fatalf("DropCollection() error = %v", err)
	}
	if _, err := s.Search(ctx, col, []float32{1, 0, 0}, 1); err == nil {
		t.Error("Search() on dropped collection should fail")
	}
	// Dropping twice is a no-op.
	if err := s.DropCollection(ctx, col); err != nil {
		t.Errorf("DropCollection() second call error = %v", err)
	}
}
