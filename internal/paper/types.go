// Package paper holds the domain types for the currently loaded paper:
// its metadata, bibliography, and the reference processing state machine.
package paper

// Author represents a single author of a paper or reference.
type Author struct {
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
	Affiliation string `json:"affiliation,omitempty"`
	Email       string `json:"email,omitempty"`
	ORCID       string `json:"orcid,omitempty"`
}

// Section is one body section of a paper, in document order.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ReferenceRecord is one bibliographic entry extracted from the paper.
// RefID is assigned once at extraction time and never changes; it is the
// join key between the document store, the queue, and per-reference indexes.
type ReferenceRecord struct {
	RefID    string          `json:"ref_id"`
	Title    string          `json:"title"`
	Authors  []Author        `json:"authors"`
	Year     string          `json:"year,omitempty"`
	DOI      string          `json:"doi,omitempty"`
	Abstract string          `json:"abstract,omitempty"`
	Venue    string          `json:"venue,omitempty"`
	Status   ReferenceStatus `json:"status"`
}

// Metadata is the parsed structure of a paper. Only one Metadata instance
// is live per process at a time (last upload wins).
type Metadata struct {
	Title      string             `json:"title"`
	Authors    []Author           `json:"authors"`
	Year       string             `json:"year,omitempty"`
	Abstract   string             `json:"abstract,omitempty"`
	Sections   []Section          `json:"sections"`
	SourceText string             `json:"sourceContent"`
	References []*ReferenceRecord `json:"references"`
}
