// Package chunker splits extracted document text into overlapping,
// line-numbered passages sized for the embedding model.
package chunker

import (
	"strings"

	"refind/internal/paper"
)

// Chunk is a bounded, line-addressed excerpt of document text. StartLine and
// EndLine are 1-based offsets into the text the chunk was cut from. A chunk
// is immutable once created.
type Chunk struct {
	Text       string `json:"text"`
	Index      int    `json:"chunk_index"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
	Section    string `json:"section,omitempty"`
	OwnerRefID string `json:"owner_ref_id,omitempty"` // empty = primary document
}

// Chunker produces chunks of approximately Size lines with Overlap lines
// shared between consecutive chunks. Output is deterministic for identical
// input and parameters.
type Chunker struct {
	Size    int
	Overlap int
}

// New creates a Chunker. Overlap is clamped below Size so every chunk makes
// forward progress.
func New(size, overlap int) *Chunker {
	if size < 1 {
		size = 1
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Chunker{Size: size, Overlap: overlap}
}

// Chunk splits text into line windows. Empty input yields an empty slice.
// The final chunk may be shorter than Size; no chunk crosses the end of
// the input.
func (c *Chunker) Chunk(text string) []Chunk {
	if text == "" {
		return []Chunk{}
	}

	lines := strings.Split(text, "\n")
	chunks := []Chunk{}
	step := c.Size - c.Overlap

	for start, idx := 0, 0; start < len(lines); start, idx = start+step, idx+1 {
		end := start + c.Size
		if end > len(lines) {
			end = len(lines)
		}

		chunks = append(chunks, Chunk{
			Text:      strings.Join(lines[start:end], "\n"),
			Index:     idx,
			StartLine: start + 1,
			EndLine:   end,
		})

		if end == len(lines) {
			break
		}
	}

	return chunks
}

// ChunkSections chunks every section of a document independently, tagging
// each chunk with its section title and the owning reference (empty for the
// primary paper). Chunk indexes run document-wide, line numbers per section.
func (c *Chunker) ChunkSections(sections []paper.Section, ownerRefID string) []Chunk {
	chunks := []Chunk{}
	for _, section := range sections {
		for _, chunk := range c.Chunk(section.Content) {
			chunk.Index = len(chunks)
			chunk.Section = section.Title
			chunk.OwnerRefID = ownerRefID
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}
