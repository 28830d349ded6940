// Package rag answers questions about the active paper by retrieving the
// most similar chunks and asking the LLM to ground its answer in them.
package rag

import (
	"context"
	"fmt"
	"strings"

	"refind/internal/contextutil"
	"refind/internal/docstore"
	"refind/internal/index"
	"refind/internal/llm"
	"refind/internal/service"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_generator.go -package=mocks refind/internal/rag Generator

// Generator produces chat completions.
type Generator interface {
	Complete(ctx context.Context, messages []llm.Message, params llm.ChatParams) (*llm.Completion, error)
}

const systemPrompt = "You are a research assistant answering questions about an academic paper. " +
	"Use only the provided excerpts. Cite the excerpts you rely on as [Section Name, Lines X-Y]. " +
	"If the excerpts do not contain the answer, say you cannot find it in the paper."

// Source is one retrieved chunk with its provenance.
type Source struct {
	Text       string  `json:"text"`
	Section    string  `json:"section"`
	StartLine  int     `json:"start_line"`
	EndLine    int     `json:"end_line"`
	Similarity float32 `json:"similarity"`
}

// Answer is a grounded answer with the chunks that produced it.
type Answer struct {
	Answer     string
	ChunksUsed int
	Usage      llm.Usage
	Sources    []Source
}

// ReferenceResult groups search hits by the reference they came from.
type ReferenceResult struct {
	RefID   string   `json:"ref_id"`
	Title   string   `json:"title"`
	Matches []Source `json:"matches"`
}

// Config holds the retrieval and generation knobs.
type Config struct {
	TopK        int
	Temperature float64
	MaxTokens   int
}

// Engine retrieves and generates.
type Engine struct {
	embedder  index.Embedder
	generator Generator
	store     *docstore.Store
	cfg       Config
}

func NewEngine(embedder index.Embedder, generator Generator, store *docstore.Store, cfg Config) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	return &Engine{embedder: embedder, generator: generator, store: store, cfg: cfg}
}

// Answer retrieves the top chunks of the active paper and asks the LLM a
// grounded question. An empty retrieval still generates, with zero sources,
// so the model can say the paper does not cover the topic.
func (e *Engine) Answer(ctx context.Context, question string) (*Answer, error) {
	logger := contextutil.LoggerFromContext(ctx)

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, &service.ValidationError{Field: "text", Message: "question text is required"}
	}

	idx, err := e.store.PrimaryIndex()
	if err != nil {
		return nil, err
	}

	vec, err := e.embedQuery(ctx, question)
	if err != nil {
		return nil, err
	}

	matches, err := idx.Search(ctx, vec, e.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("%w: search failed: %v", service.ErrExternalService, err)
	}

	var contextParts []string
	sources := make([]Source, 0, len(matches))
	for _, match := range matches {
		contextParts = append(contextParts, fmt.Sprintf("[From %s, Lines %d-%d]:\n%s",
			match.Chunk.Section, match.Chunk.StartLine, match.Chunk.EndLine, match.Chunk.Text))
		sources = append(sources, toSource(match))
	}

	userPrompt := fmt.Sprintf("Context from the paper:\n\n%s\n\nQuestion: %s",
		strings.Join(contextParts, "\n\n"), question)
	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}

	completion, err := e.generator.Complete(ctx, messages, llm.ChatParams{
		Temperature: e.cfg.Temperature,
		MaxTokens:   e.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: completion failed: %v", service.ErrExternalService, err)
	}

	logger.InfoContext(ctx, "question answered",
		"chunks_used", len(sources),
		"total_tokens", completion.Usage.TotalTokens)

	return &Answer{
		Answer:     completion.Content,
		ChunksUsed: len(sources),
		Usage:      completion.Usage,
		Sources:    sources,
	}, nil
}

// SearchReferences runs a similarity search across every processed
// reference and groups the hits per reference. References without hits
// are omitted.
func (e *Engine) SearchReferences(ctx context.Context, query string, limit int) ([]ReferenceResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &service.ValidationError{Field: "query", Message: "query text is required"}
	}
	if limit <= 0 {
		limit = e.cfg.TopK
	}
	if _, err := e.store.Current(); err != nil {
		return nil, err
	}

	vec, err := e.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	results := []ReferenceResult{}
	for _, refIdx := range e.store.ProcessedReferences() {
		matches, err := refIdx.Index.Search(ctx, vec, limit)
		if err != nil {
			return nil, fmt.Errorf("%w: search failed for reference %s: %v",
				service.ErrExternalService, refIdx.Ref.RefID, err)
		}
		if len(matches) == 0 {
			continue
		}
		result := ReferenceResult{
			RefID:   refIdx.Ref.RefID,
			Title:   refIdx.Ref.Title,
			Matches: make([]Source, 0, len(matches)),
		}
		for _, match := range matches {
			result.Matches = append(result.Matches, toSource(match))
		}
		results = append(results, result)
	}
	return results, nil
}

// SearchReference searches inside one processed reference.
func (e *Engine) SearchReference(ctx context.Context, refID, query string, limit int) ([]Source, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &service.ValidationError{Field: "query", Message: "query text is required"}
	}
	if limit <= 0 {
		limit = e.cfg.TopK
	}

	idx, err := e.store.ReferenceIndex(refID)
	if err != nil {
		return nil, err
	}

	vec, err := e.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, err := idx.Search(ctx, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: search failed: %v", service.ErrExternalService, err)
	}

	sources := make([]Source, 0, len(matches))
	for _, match := range matches {
		sources = append(sources, toSource(match))
	}
	return sources, nil
}

func (e *Engine) embedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedder.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to embed query: %v", service.ErrExternalService, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 query embedding, got %d", service.ErrExternalService, len(vectors))
	}
	return vectors[0], nil
}

func toSource(match index.Match) Source {
	return Source{
		Text:       match.Chunk.Text,
		Section:    match.Chunk.Section,
		StartLine:  match.Chunk.StartLine,
		EndLine:    match.Chunk.EndLine,
		Similarity: match.Similarity,
	}
}
