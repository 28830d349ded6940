package handlers

import (
	"net/http"

	"refind/internal/docstore"
)

// PaperHandler serves the active paper's metadata.
type PaperHandler struct {
	store *docstore.Store
}

// NewPaperHandler creates a new PaperHandler.
func NewPaperHandler(store *docstore.Store) *PaperHandler {
	return &PaperHandler{store: store}
}

func (h *PaperHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	meta, err := h.store.Current()
	if err != nil {
		handleServiceError(r.Context(), w, err, "Failed to load paper")
		return
	}
	writeJSON(w, http.StatusOK, meta)
}
