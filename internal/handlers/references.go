package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"refind/internal/contextutil"
	"refind/internal/docstore"
	"refind/internal/paper"
	"refind/internal/queue"
	"refind/internal/rag"
)

// ReferencesHandler exposes reference listing, status, queue control,
// content and search.
type ReferencesHandler struct {
	store  *docstore.Store
	queue  *queue.Worker
	engine *rag.Engine
}

// NewReferencesHandler creates a new ReferencesHandler.
func NewReferencesHandler(store *docstore.Store, worker *queue.Worker, engine *rag.Engine) *ReferencesHandler {
	return &ReferencesHandler{store: store, queue: worker, engine: engine}
}

// ReferencesResponse lists all references in citation order.
type ReferencesResponse struct {
	References []paper.ReferenceRecord `json:"references"`
}

// List handles GET /references.
func (h *ReferencesHandler) List(w http.ResponseWriter, r *http.Request) {
	refs, err := h.store.References()
	if err != nil {
		handleServiceError(r.Context(), w, err, "Failed to list references")
		return
	}
	writeJSON(w, http.StatusOK, ReferencesResponse{References: refs})
}

// StatusResponse maps every ref_id to its processing status.
type StatusResponse struct {
	References map[string]paper.ReferenceStatus `json:"references"`
}

// Status handles GET /references/status.
func (h *ReferencesHandler) Status(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.store.StatusSnapshot()
	if err != nil {
		handleServiceError(r.Context(), w, err, "Failed to read statuses")
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{References: statuses})
}

// QueueStatus handles GET /references/queue/status.
func (h *ReferencesHandler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.queue.Status())
}

// ProcessResponse acknowledges a queued reference.
type ProcessResponse struct {
	RefID  string                `json:"ref_id"`
	Status paper.ReferenceStatus `json:"status"`
}

// Process handles POST /references/{refID}/process: it queues one
// reference for processing. Failed references may be queued again.
func (h *ReferencesHandler) Process(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	refID := chi.URLParam(r, "refID")

	if err := h.queue.Enqueue(refID); err != nil {
		handleServiceError(ctx, w, err, "Failed to queue reference")
		return
	}

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "reference queued", "ref_id", refID)
	writeJSON(w, http.StatusAccepted, ProcessResponse{RefID: refID, Status: paper.StatusPending})
}

// Content handles GET /references/{refID}/content: the indexed chunks of
// a processed reference.
func (h *ReferencesHandler) Content(w http.ResponseWriter, r *http.Request) {
	refID := chi.URLParam(r, "refID")

	content, err := h.store.ReferenceContent(refID)
	if err != nil {
		handleServiceError(r.Context(), w, err, "Failed to load reference content")
		return
	}
	writeJSON(w, http.StatusOK, content)
}

// SearchRequest is a similarity search across reference content.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// SearchResponse groups hits per reference.
type SearchResponse struct {
	Results []rag.ReferenceResult `json:"results"`
}

// Search handles POST /references/search across all processed references.
func (h *ReferencesHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	results, err := h.engine.SearchReferences(ctx, req.Query, req.Limit)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to search references")
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// SearchOneResponse lists hits inside a single reference.
type SearchOneResponse struct {
	RefID   string       `json:"ref_id"`
	Matches []rag.Source `json:"matches"`
}

// SearchOne handles POST /references/{refID}/search.
func (h *ReferencesHandler) SearchOne(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	refID := chi.URLParam(r, "refID")

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	matches, err := h.engine.SearchReference(ctx, refID, req.Query, req.Limit)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to search reference")
		return
	}
	writeJSON(w, http.StatusOK, SearchOneResponse{RefID: refID, Matches: matches})
}
