// Package docstore holds the active paper: its metadata, its primary
// embedding index, the per-reference indexes built by the queue worker,
// and the status of every reference. A monotonically increasing epoch
// fences off background writes that belong to a replaced paper.
package docstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"refind/internal/chunker"
	"refind/internal/contextutil"
	"refind/internal/index"
	"refind/internal/paper"
	"refind/internal/service"
	"refind/internal/storage"
)

// IndexFactory builds a fresh index for the given label. Each call must
// return an index backed by its own vector-store collection.
type IndexFactory func(ctx context.Context, label string) (*index.Index, error)

// PaperStore persists paper snapshots.
type PaperStore interface {
	Save(ctx context.Context, id string, meta *paper.Metadata) error
}

// ContentStore persists processed reference content.
type ContentStore interface {
	Save(ctx context.Context, content *storage.ReferenceContent) error
}

// RefIndex pairs a reference with its searchable index.
type RefIndex struct {
	Ref   paper.ReferenceRecord
	Index *index.Index
}

// Store is the single source of truth for the active document. All state
// transitions happen under its lock; readers get copies.
type Store struct {
	chunker  *chunker.Chunker
	newIndex IndexFactory
	papers   PaperStore   // optional
	contents ContentStore // optional

	mu         sync.RWMutex
	epoch      int64
	paperID    string
	current    *paper.Metadata
	primary    *index.Index
	refs       map[string]*paper.ReferenceRecord
	refOrder   []string
	refIndexes map[string]*index.Index
}

// New creates an empty document store. papers and contents may be nil
// when persistence is disabled.
func New(ck *chunker.Chunker, newIndex IndexFactory, papers PaperStore, contents ContentStore) *Store {
	return &Store{
		chunker:  ck,
		newIndex: newIndex,
		papers:   papers,
		contents: contents,
	}
}

// Load replaces the active paper. The new primary index is built before
// any visible state changes, so a failed load leaves the previous paper
// intact. On success the epoch advances, all references reset to
// not_started, and the old indexes are dropped.
func (s *Store) Load(ctx context.Context, meta *paper.Metadata) error {
	logger := contextutil.LoggerFromContext(ctx)
	if meta == nil {
		return &service.ValidationError{Field: "paper", Message: "metadata is required"}
	}

	sections := make([]paper.Section, 0, len(meta.Sections)+1)
	if meta.Abstract != "" {
		sections = append(sections, paper.Section{Title: "Abstract", Content: meta.Abstract})
	}
	sections = append(sections, meta.Sections...)
	chunks := s.chunker.ChunkSections(sections, "")

	primary, err := s.newIndex(ctx, "paper")
	if err != nil {
		return fmt.Errorf("failed to create primary index: %w", err)
	}
	if err := primary.Add(ctx, chunks); err != nil {
		_ = primary.Drop(ctx)
		return fmt.Errorf("%w: failed to index paper: %v", service.ErrExternalService, err)
	}

	refs := make(map[string]*paper.ReferenceRecord, len(meta.References))
	order := make([]string, 0, len(meta.References))
	for _, ref := range meta.References {
		if ref.RefID == "" {
			ref.RefID = paper.NewRefID(ref.DOI, ref.Title)
		}
		if _, dup := refs[ref.RefID]; dup {
			continue
		}
		ref.Status = paper.StatusNotStarted
		refs[ref.RefID] = ref
		order = append(order, ref.RefID)
	}

	paperID := uuid.New().String()

	s.mu.Lock()
	oldPrimary := s.primary
	oldRefIndexes := s.refIndexes
	s.epoch++
	s.paperID = paperID
	s.current = meta
	s.primary = primary
	s.refs = refs
	s.refOrder = order
	s.refIndexes = make(map[string]*index.Index)
	epoch := s.epoch
	s.mu.Unlock()

	// Old collections are gone from every read path already; dropping
	// them is best effort.
	if oldPrimary != nil {
		if err := oldPrimary.Drop(ctx); err != nil {
			logger.WarnContext(ctx, "failed to drop old primary index", "error", err)
		}
	}
	for refID, idx := range oldRefIndexes {
		if err := idx.Drop(ctx); err != nil {
			logger.WarnContext(ctx, "failed to drop old reference index", "ref_id", refID, "error", err)
		}
	}

	if s.papers != nil {
		if err := s.papers.Save(ctx, paperID, meta); err != nil {
			logger.WarnContext(ctx, "failed to persist paper snapshot", "paper_id", paperID, "error", err)
		}
	}

	logger.InfoContext(ctx, "paper loaded",
		"paper_id", paperID,
		"epoch", epoch,
		"title", meta.Title,
		"chunks", len(chunks),
		"references", len(order))
	return nil
}

// Epoch returns the current document epoch.
func (s *Store) Epoch() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// PaperID returns the id the active paper was persisted under.
func (s *Store) PaperID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paperID
}

// Current returns a snapshot of the active paper's metadata. The returned
// references are copies, safe to read while the queue worker runs.
func (s *Store) Current() (*paper.Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, service.ErrNoActiveDocument
	}

	snapshot := *s.current
	snapshot.References = make([]*paper.ReferenceRecord, 0, len(s.refOrder))
	for _, refID := range s.refOrder {
		ref := *s.refs[refID]
		snapshot.References = append(snapshot.References, &ref)
	}
	return &snapshot, nil
}

// References returns copies of all reference records in citation order.
func (s *Store) References() ([]paper.ReferenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, service.ErrNoActiveDocument
	}

	out := make([]paper.ReferenceRecord, 0, len(s.refOrder))
	for _, refID := range s.refOrder {
		out = append(out, *s.refs[refID])
	}
	return out, nil
}

// GetReference returns a copy of one reference record.
func (s *Store) GetReference(refID string) (paper.ReferenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.refs[refID]
	if !ok {
		return paper.ReferenceRecord{}, service.ErrNotFound
	}
	return *ref, nil
}

// StatusSnapshot maps every ref_id to its current status.
func (s *Store) StatusSnapshot() (map[string]paper.ReferenceStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, service.ErrNoActiveDocument
	}

	out := make(map[string]paper.ReferenceStatus, len(s.refs))
	for refID, ref := range s.refs {
		out[refID] = ref.Status
	}
	return out, nil
}

// SetReferenceStatus moves a reference to a new status. Writes carrying a
// stale epoch are rejected so a finished job for a replaced paper cannot
// corrupt the current one. Illegal transitions are rejected too.
func (s *Store) SetReferenceStatus(refID string, to paper.ReferenceStatus, epoch int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return service.ErrStaleEpoch
	}
	ref, ok := s.refs[refID]
	if !ok {
		return service.ErrNotFound
	}
	if !paper.CanTransition(ref.Status, to) {
		return fmt.Errorf("illegal status transition %s -> %s for reference %s", ref.Status, to, refID)
	}
	ref.Status = to
	return nil
}

// AttachReferenceIndex publishes a built index for a reference. Stale
// epochs are rejected; the caller must then drop the orphaned index.
func (s *Store) AttachReferenceIndex(refID string, idx *index.Index, epoch int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return service.ErrStaleEpoch
	}
	if _, ok := s.refs[refID]; !ok {
		return service.ErrNotFound
	}
	s.refIndexes[refID] = idx
	return nil
}

// PrimaryIndex returns the active paper's index.
func (s *Store) PrimaryIndex() (*index.Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.primary == nil {
		return nil, service.ErrNoActiveDocument
	}
	return s.primary, nil
}

// ReferenceIndex returns the index of a processed reference.
func (s *Store) ReferenceIndex(refID string) (*index.Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref, ok := s.refs[refID]
	if !ok {
		return nil, service.ErrNotFound
	}
	idx, built := s.refIndexes[refID]
	if ref.Status != paper.StatusProcessed || !built {
		return nil, service.ErrNotIndexed
	}
	return idx, nil
}

// ProcessedReferences returns every processed reference with its index,
// in citation order.
func (s *Store) ProcessedReferences() []RefIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []RefIndex
	for _, refID := range s.refOrder {
		ref := s.refs[refID]
		idx, built := s.refIndexes[refID]
		if ref.Status != paper.StatusProcessed || !built {
			continue
		}
		out = append(out, RefIndex{Ref: *ref, Index: idx})
	}
	return out
}

// ReferenceContent returns the indexed chunks of a processed reference.
func (s *Store) ReferenceContent(refID string) (*storage.ReferenceContent, error) {
	s.mu.RLock()
	ref, ok := s.refs[refID]
	if !ok {
		s.mu.RUnlock()
		return nil, service.ErrNotFound
	}
	idx, built := s.refIndexes[refID]
	paperID := s.paperID
	if ref.Status != paper.StatusProcessed || !built {
		s.mu.RUnlock()
		return nil, service.ErrNotIndexed
	}
	record := *ref
	s.mu.RUnlock()

	return &storage.ReferenceContent{
		RefID:     refID,
		PaperID:   paperID,
		Reference: record,
		Chunks:    idx.Chunks(),
	}, nil
}

// PersistReferenceContent writes the processed content of a reference to
// durable storage. No-op when persistence is disabled.
func (s *Store) PersistReferenceContent(ctx context.Context, content *storage.ReferenceContent) error {
	if s.contents == nil {
		return nil
	}
	return s.contents.Save(ctx, content)
}
