package handlers

import (
	"encoding/json"
	"net/http"

	"refind/internal/contextutil"
	"refind/internal/llm"
	"refind/internal/rag"
)

// QueryHandler answers questions about the active paper.
type QueryHandler struct {
	engine *rag.Engine
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(engine *rag.Engine) *QueryHandler {
	return &QueryHandler{engine: engine}
}

// QueryRequest is the question payload.
type QueryRequest struct {
	Text string `json:"text"`
}

// QueryResponse carries the answer and its provenance.
type QueryResponse struct {
	Answer   string        `json:"answer"`
	Metadata QueryMetadata `json:"metadata"`
}

// QueryMetadata describes how the answer was produced.
type QueryMetadata struct {
	ChunksUsed int          `json:"chunks_used"`
	TokenUsage llm.Usage    `json:"token_usage"`
	Sources    []rag.Source `json:"sources"`
}

func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	answer, err := h.engine.Answer(ctx, req.Text)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to answer question")
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{
		Answer: answer.Answer,
		Metadata: QueryMetadata{
			ChunksUsed: answer.ChunksUsed,
			TokenUsage: answer.Usage,
			Sources:    answer.Sources,
		},
	})
}
