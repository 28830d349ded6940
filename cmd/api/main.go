package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"strings"

	"github.com/google/uuid"

	"refind/internal/chunker"
	"refind/internal/config"
	"refind/internal/contextutil"
	"refind/internal/docstore"
	"refind/internal/http"
	"refind/internal/index"
	"refind/internal/llm"
	"refind/internal/parser"
	"refind/internal/queue"
	"refind/internal/rag"
	"refind/internal/resolver"
	"refind/internal/service"
	"refind/internal/storage"
	"refind/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel, "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	paperRepo := storage.NewPaperRepo(db)
	contentRepo := storage.NewReferenceContentRepo(db)

	ctx := context.Background()

	if id, last, err := paperRepo.Latest(ctx); err == nil {
		slog.Info("Last ingested paper", "paper_id", id, "title", last.Title)
	} else if !errors.Is(err, storage.ErrNotFound) {
		slog.Warn("Failed to read last paper snapshot", "error", err)
	}

	// Pick the vector store backend
	var vectorStore vectorstore.VectorStore
	switch cfg.VectorBackend {
	case "qdrant":
		qdrantStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			log.Fatalf("Failed to create Qdrant client: %v", err)
		}
		vectorStore = qdrantStore
		slog.Info("Vector store ready", "backend", "qdrant", "url", cfg.QdrantURL)
	default:
		vectorStore = vectorstore.NewMemoryStore()
		slog.Info("Vector store ready", "backend", "memory")
	}

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingVectorSize)
	testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.EmbeddingVectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.EmbeddingVectorSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.EmbeddingVectorSize)

	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)
	grobid := parser.NewClient(cfg.GrobidURL)
	refResolver := resolver.New(cfg.UnpaywallEmail, cfg.ResolverRateLimit)
	ck := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)

	// Every index gets its own collection; the label keeps collection
	// names readable in Qdrant.
	newIndex := func(ctx context.Context, label string) (*index.Index, error) {
		collection := fmt.Sprintf("refind-%s-%s", sanitizeLabel(label), uuid.New().String()[:8])
		return index.New(ctx, vectorStore, embedder, collection, cfg.EmbeddingVectorSize)
	}

	store := docstore.New(ck, newIndex, paperRepo, contentRepo)
	worker := queue.NewWorker(store, refResolver, grobid, ck, newIndex)
	engine := rag.NewEngine(embedder, llmClient, store, rag.Config{
		TopK:        cfg.TopK,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	papers := service.NewPaperService(grobid, store, worker)
	slog.Info("RAG engine initialized", "top_k", cfg.TopK, "model", cfg.LLMModelName)

	// Start the reference queue consumer
	workerCtx := contextutil.WithLogger(ctx, slog.Default().With("component", "queue"))
	go worker.Run(workerCtx)

	deps := &http.Deps{
		Papers: papers,
		Store:  store,
		Queue:  worker,
		Engine: engine,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// sanitizeLabel keeps collection names short and safe: ref ids are UUIDs
// already, anything else is truncated.
func sanitizeLabel(label string) string {
	label = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '-'
		}
	}, label)
	if len(label) > 24 {
		label = label[:24]
	}
	return label
}
