// Package queue processes references in the background: resolve, fetch,
// parse, chunk, index, publish. A single worker goroutine consumes the
// queue in FIFO order, so reference status has exactly one writer.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"refind/internal/chunker"
	"refind/internal/contextutil"
	"refind/internal/docstore"
	"refind/internal/index"
	"refind/internal/paper"
	"refind/internal/resolver"
	"refind/internal/service"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_queue.go -package=mocks refind/internal/queue Resolver,Parser

// Resolver locates and downloads reference PDFs.
type Resolver interface {
	Resolve(ctx context.Context, ref paper.ReferenceRecord) (*resolver.Resolution, error)
	FetchPDF(ctx context.Context, res *resolver.Resolution) ([]byte, error)
}

// Parser extracts structured metadata from a PDF.
type Parser interface {
	ParsePDF(ctx context.Context, filename string, data []byte) (*paper.Metadata, error)
}

// State is the queue status reported to clients.
type State struct {
	QueueSize      int  `json:"queue_size"`
	ProcessedCount int  `json:"processed_count"`
	IsProcessing   bool `json:"is_processing"`
}

// Worker is the queue and its single consumer.
type Worker struct {
	store    *docstore.Store
	resolver Resolver
	parser   Parser
	chunker  *chunker.Chunker
	newIndex docstore.IndexFactory

	mu         sync.Mutex
	items      []string
	processed  int
	processing bool
	wake       chan struct{}
}

// NewWorker creates a stopped worker; call Run to start consuming.
func NewWorker(store *docstore.Store, res Resolver, parser Parser, ck *chunker.Chunker, newIndex docstore.IndexFactory) *Worker {
	return &Worker{
		store:    store,
		resolver: res,
		parser:   parser,
		chunker:  ck,
		newIndex: newIndex,
		wake:     make(chan struct{}, 1),
	}
}

// Run consumes the queue until the context is cancelled. It is the only
// goroutine that moves references past pending.
func (w *Worker) Run(ctx context.Context) {
	for {
		refID, ok := w.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-w.wake:
				continue
			}
		}
		w.setProcessing(true)
		w.processOne(ctx, refID)
		w.setProcessing(false)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// Enqueue queues one reference. Allowed only from not_started or failed;
// anything else means the reference is already queued, in flight, or done.
func (w *Worker) Enqueue(refID string) error {
	ref, err := w.store.GetReference(refID)
	if err != nil {
		return err
	}
	switch ref.Status {
	case paper.StatusNotStarted, paper.StatusFailed:
	default:
		return &service.ValidationError{
			Field:   "ref_id",
			Message: fmt.Sprintf("reference is %s and cannot be queued", ref.Status),
		}
	}

	if err := w.store.SetReferenceStatus(refID, paper.StatusPending, w.store.Epoch()); err != nil {
		return err
	}
	w.push(refID)
	return nil
}

// EnqueueAll queues every not_started reference of the active paper and
// returns how many were queued.
func (w *Worker) EnqueueAll() (int, error) {
	refs, err := w.store.References()
	if err != nil {
		return 0, err
	}

	epoch := w.store.Epoch()
	queued := 0
	for _, ref := range refs {
		if ref.Status != paper.StatusNotStarted {
			continue
		}
		if err := w.store.SetReferenceStatus(ref.RefID, paper.StatusPending, epoch); err != nil {
			continue
		}
		w.push(ref.RefID)
		queued++
	}
	return queued, nil
}

// Status reports queue size, processed count and whether a reference is
// currently in flight.
func (w *Worker) Status() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{
		QueueSize:      len(w.items),
		ProcessedCount: w.processed,
		IsProcessing:   w.processing,
	}
}

// Reset clears pending items and the processed counter. Called when a new
// paper replaces the old one; an in-flight job is fenced off by its epoch.
func (w *Worker) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items = nil
	w.processed = 0
}

func (w *Worker) push(refID string) {
	w.mu.Lock()
	w.items = append(w.items, refID)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) pop() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.items) == 0 {
		return "", false
	}
	refID := w.items[0]
	w.items = w.items[1:]
	return refID, true
}

func (w *Worker) setProcessing(v bool) {
	w.mu.Lock()
	w.processing = v
	w.mu.Unlock()
}

func (w *Worker) countTerminal() {
	w.mu.Lock()
	w.processed++
	w.mu.Unlock()
}

// processOne runs the full pipeline for one reference. The epoch captured
// at dequeue fences every write: results for a replaced paper are dropped
// without counting.
func (w *Worker) processOne(ctx context.Context, refID string) {
	logger := contextutil.LoggerFromContext(ctx)
	epoch := w.store.Epoch()

	ref, err := w.store.GetReference(refID)
	if err != nil || ref.Status != paper.StatusPending {
		// The paper was replaced between enqueue and dequeue.
		return
	}
	if err := w.store.SetReferenceStatus(refID, paper.StatusProcessing, epoch); err != nil {
		return
	}

	idx, err := w.buildIndex(ctx, refID, ref)
	if err != nil {
		logger.WarnContext(ctx, "reference processing failed",
			"ref_id", refID, "title", ref.Title, "error", err)
		w.finish(ctx, refID, epoch, paper.StatusFailed)
		return
	}

	if err := w.store.AttachReferenceIndex(refID, idx, epoch); err != nil {
		_ = idx.Drop(ctx)
		return
	}
	w.finish(ctx, refID, epoch, paper.StatusProcessed)

	content, err := w.store.ReferenceContent(refID)
	if err != nil {
		return
	}
	if err := w.store.PersistReferenceContent(ctx, content); err != nil {
		logger.WarnContext(ctx, "failed to persist reference content", "ref_id", refID, "error", err)
	}
}

// buildIndex resolves, downloads, parses, chunks and indexes one
// reference, returning its ready-to-publish index.
func (w *Worker) buildIndex(ctx context.Context, refID string, ref paper.ReferenceRecord) (*index.Index, error) {
	res, err := w.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}

	pdf, err := w.resolver.FetchPDF(ctx, res)
	if err != nil {
		return nil, fmt.Errorf("fetch pdf: %w", err)
	}

	meta, err := w.parser.ParsePDF(ctx, refID+".pdf", pdf)
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}

	sections := make([]paper.Section, 0, len(meta.Sections)+1)
	if meta.Abstract != "" {
		sections = append(sections, paper.Section{Title: "Abstract", Content: meta.Abstract})
	}
	sections = append(sections, meta.Sections...)
	chunks := w.chunker.ChunkSections(sections, refID)
	if len(chunks) == 0 {
		return nil, errors.New("no text extracted from pdf")
	}

	idx, err := w.newIndex(ctx, refID)
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	if err := idx.Add(ctx, chunks); err != nil {
		_ = idx.Drop(ctx)
		return nil, fmt.Errorf("index chunks: %w", err)
	}
	return idx, nil
}

// finish records a terminal status and bumps the processed counter, unless
// the write was fenced off by a newer epoch.
func (w *Worker) finish(ctx context.Context, refID string, epoch int64, status paper.ReferenceStatus) {
	if err := w.store.SetReferenceStatus(refID, status, epoch); err != nil {
		if !errors.Is(err, service.ErrStaleEpoch) {
			contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to record reference status",
				"ref_id", refID, "status", status, "error", err)
		}
		return
	}
	w.countTerminal()
}
