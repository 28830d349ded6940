// Package service holds the application's error taxonomy and the upload
// orchestration that ties parsing, indexing and queueing together.
package service

import (
	"context"
	"fmt"
	"strings"

	"refind/internal/contextutil"
	"refind/internal/paper"
)

// Parser extracts structured metadata from a PDF.
type Parser interface {
	ParsePDF(ctx context.Context, filename string, data []byte) (*paper.Metadata, error)
}

// DocumentStore is the part of the document store the upload flow needs.
type DocumentStore interface {
	Load(ctx context.Context, meta *paper.Metadata) error
	Current() (*paper.Metadata, error)
}

// ReferenceQueue is the part of the queue the upload flow needs.
type ReferenceQueue interface {
	Reset()
	EnqueueAll() (int, error)
}

// PaperService handles paper ingestion end to end.
type PaperService struct {
	parser Parser
	store  DocumentStore
	queue  ReferenceQueue
}

func NewPaperService(parser Parser, store DocumentStore, queue ReferenceQueue) *PaperService {
	return &PaperService{parser: parser, store: store, queue: queue}
}

// Upload parses the PDF, replaces the active paper and queues all of its
// references. The returned metadata reflects the post-queue state, so
// reference statuses are already pending.
func (s *PaperService) Upload(ctx context.Context, filename string, data []byte) (*paper.Metadata, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return nil, &ValidationError{Field: "file", Message: "only PDF files are supported"}
	}
	if len(data) == 0 {
		return nil, &ValidationError{Field: "file", Message: "file is empty"}
	}

	meta, err := s.parser.ParsePDF(ctx, filename, data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse pdf: %v", ErrExternalService, err)
	}

	if err := s.store.Load(ctx, meta); err != nil {
		return nil, err
	}

	// The old paper's pending work is gone; stale in-flight results are
	// fenced off by the epoch bump inside Load.
	s.queue.Reset()
	queued, err := s.queue.EnqueueAll()
	if err != nil {
		logger.WarnContext(ctx, "failed to queue references", "error", err)
	} else {
		logger.InfoContext(ctx, "references queued", "count", queued)
	}

	return s.store.Current()
}
