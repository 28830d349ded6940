// Package vectorstore provides vector storage backends for similarity search.
// Each document (primary paper or reference) owns its own collection, so
// there are never concurrent writers to the same collection.
package vectorstore

import "context"

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a single similarity search hit.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// EnsureCollection creates the collection with the given vector size if
	// it does not exist, and validates the size if it does.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns up to k results ordered by descending similarity.
	// An empty collection yields an empty result, not an error.
	Search(ctx context.Context, collection string, query []float32, k int) ([]SearchResult, error)

	// DropCollection removes a collection and all of its points.
	DropCollection(ctx context.Context, collection string) error
}
