package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-process VectorStore using brute-force cosine
// similarity. It is the default backend: the corpus of a single paper and
// its references is small enough that exact search is cheap.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	dim    int
	points []Point
}

// NewMemoryStore creates an empty in-memory vector store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memCollection)}
}

// EnsureCollection creates or validates a collection.
func (s *MemoryStore) EnsureCollection(_ context.Context, collection string, vectorSize int) error {
	if vectorSize <= 0 {
		return fmt.Errorf("vector size must be greater than 0")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.collections[collection]; ok {
		if existing.dim != vectorSize {
			return fmt.Errorf("collection %s vector size mismatch: expected %d, got %d", collection, vectorSize, existing.dim)
		}
		return nil
	}
	s.collections[collection] = &memCollection{dim: vectorSize}
	return nil
}

// Upsert appends points to the collection, preserving insertion order.
func (s *MemoryStore) Upsert(_ context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("unknown collection %s", collection)
	}
	for _, p := range points {
		if len(p.Vec) != col.dim {
			return fmt.Errorf("point %s has dimension %d, collection %s expects %d", p.ID, len(p.Vec), collection, col.dim)
		}
	}
	col.points = append(col.points, points...)
	return nil
}

// Search scores every point by cosine similarity and returns the top k.
// Ties keep insertion order (stable sort) so results are deterministic.
func (s *MemoryStore) Search(_ context.Context, collection string, query []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("unknown collection %s", collection)
	}
	if len(query) != col.dim {
		return nil, fmt.Errorf("query has dimension %d, collection %s expects %d", len(query), collection, col.dim)
	}

	results := make([]SearchResult, 0, len(col.points))
	for _, p := range col.points {
		results = append(results, SearchResult{
			PointID: p.ID,
			Score:   cosine(query, p.Vec),
			Meta:    p.Meta,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// DropCollection removes a collection. Dropping an unknown collection is a no-op.
func (s *MemoryStore) DropCollection(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, collection)
	return nil
}

// cosine computes the cosine similarity of two equal-length vectors.
// Zero vectors score 0.
func cosine(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
