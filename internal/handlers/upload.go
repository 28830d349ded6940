// Package handlers contains the HTTP handlers of the API.
package handlers

import (
	"io"
	"net/http"

	"refind/internal/contextutil"
	"refind/internal/service"
)

// maxUploadSize caps uploaded PDFs at 50 MB.
const maxUploadSize = 50 << 20

// UploadHandler handles paper uploads.
type UploadHandler struct {
	papers *service.PaperService
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(papers *service.PaperService) *UploadHandler {
	return &UploadHandler{papers: papers}
}

// ServeHTTP accepts a multipart PDF upload, replaces the active paper and
// responds with the parsed metadata, references already queued.
func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		logger.WarnContext(ctx, "invalid multipart form", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		logger.WarnContext(ctx, "missing file field", "error", err)
		writeError(w, http.StatusBadRequest, "A file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		logger.ErrorContext(ctx, "failed to read upload", "error", err)
		writeError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	meta, err := h.papers.Upload(ctx, header.Filename, data)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to process paper")
		return
	}

	writeJSON(w, http.StatusOK, meta)
}
