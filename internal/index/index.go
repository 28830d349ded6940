// Package index implements the per-document embedding index: a chunk table
// plus a vector-store collection holding one embedding per chunk.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"refind/internal/chunker"
	"refind/internal/contextutil"
	"refind/internal/vectorstore"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=../rag/mocks/mock_embedder.go -package=mocks refind/internal/index Embedder

// Embedder turns text into fixed-dimension vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Match is a chunk returned from a similarity search.
type Match struct {
	Chunk      chunker.Chunk
	Similarity float32
}

// Index owns the chunks and vectors of exactly one document. The owning
// component is the only writer: the primary index is written during load,
// a reference index by the queue worker before it becomes visible.
type Index struct {
	store      vectorstore.VectorStore
	embedder   Embedder
	collection string

	mu     sync.RWMutex
	chunks map[string]chunker.Chunk // point ID -> chunk
	order  []string                 // point IDs in insertion order
}

// New creates an index backed by its own vector-store collection.
func New(ctx context.Context, store vectorstore.VectorStore, embedder Embedder, collection string, vectorSize int) (*Index, error) {
	if err := store.EnsureCollection(ctx, collection, vectorSize); err != nil {
		return nil, fmt.Errorf("failed to create index collection: %w", err)
	}
	return &Index{
		store:      store,
		embedder:   embedder,
		collection: collection,
		chunks:     make(map[string]chunker.Chunk),
	}, nil
}

// Add embeds each chunk and stores the (chunk, vector) pair. Chunks are
// embedded one at a time; a failure leaves previously added chunks intact,
// so a partial index stays valid and searchable.
func (i *Index) Add(ctx context.Context, chunks []chunker.Chunk) error {
	logger := contextutil.LoggerFromContext(ctx)

	for _, chunk := range chunks {
		vectors, err := i.embedder.EmbedTexts(ctx, []string{chunk.Text})
		if err != nil {
			logger.ErrorContext(ctx, "failed to embed chunk",
				"collection", i.collection, "chunk_index", chunk.Index, "error", err)
			return fmt.Errorf("failed to embed chunk %d: %w", chunk.Index, err)
		}
		if len(vectors) == 0 {
			return fmt.Errorf("no embedding returned for chunk %d", chunk.Index)
		}

		pointID := uuid.New().String()
		point := vectorstore.Point{
			ID:  pointID,
			Vec: vectors[0],
			Meta: map[string]any{
				"chunk_index": chunk.Index,
				"section":     chunk.Section,
				"start_line":  chunk.StartLine,
				"end_line":    chunk.EndLine,
			},
		}
		if err := i.store.Upsert(ctx, i.collection, []vectorstore.Point{point}); err != nil {
			return fmt.Errorf("failed to store chunk %d: %w", chunk.Index, err)
		}

		i.mu.Lock()
		i.chunks[pointID] = chunk
		i.order = append(i.order, pointID)
		i.mu.Unlock()
	}

	slog.Debug("chunks indexed", "collection", i.collection, "count", len(chunks))
	return nil
}

// Search returns up to k chunks ordered by descending similarity to the
// query vector. An empty index yields an empty result.
func (i *Index) Search(ctx context.Context, query []float32, k int) ([]Match, error) {
	if i.Len() == 0 {
		return []Match{}, nil
	}

	results, err := i.store.Search(ctx, i.collection, query, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	matches := make([]Match, 0, len(results))
	for _, result := range results {
		chunk, ok := i.chunks[result.PointID]
		if !ok {
			continue
		}
		matches = append(matches, Match{Chunk: chunk, Similarity: result.Score})
	}
	return matches, nil
}

// Chunks returns all indexed chunks in insertion order.
func (i *Index) Chunks() []chunker.Chunk {
	i.mu.RLock()
	defer i.mu.RUnlock()

	chunks := make([]chunker.Chunk, 0, len(i.order))
	for _, id := range i.order {
		chunks = append(chunks, i.chunks[id])
	}
	return chunks
}

// Len returns the number of indexed chunks.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.order)
}

// Drop removes the index's vector-store collection.
func (i *Index) Drop(ctx context.Context) error {
	return i.store.DropCollection(ctx, i.collection)
}
