// Package document defines the ingestion data model: documents, their
// detected formats, and the content units a splitter carves them into.
package document

import (
	"github.com/google/uuid"
)

// Format identifies the detected content type of an ingested document.
type Format string

// Supported document formats.
const (
	FormatPDF   Format = "pdf"
	FormatImage Format = "image"
	FormatText  Format = "text"
)

// Document is an ingested source file. It is immutable after construction:
// splitters read it, they never mutate it.
type Document struct {
	ID      uuid.UUID
	Path    string
	Format  Format
	Content []byte

	// Pages holds one standalone single-page PDF per source page, populated
	// only for FormatPDF. Page boundaries are exact, so paged units carry
	// no overlap.
	Pages [][]byte
}

// Text returns the document content as a string. Meaningful for FormatText.
func (d *Document) Text() string {
	return string(d.Content)
}

// PageCount returns the number of detected pages, or zero for unpaged formats.
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// Range marks the slice of a document a content unit covers. For text
// documents the bounds are byte offsets; for paged documents they are
// 1-based page numbers (Start == End for a single page).
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ContentUnit is an ordered slice of a document sized for one model call.
// Exactly one of Text or Image is populated. Overlap is the number of
// leading bytes duplicated from the previous unit for context continuity.
type ContentUnit struct {
	Index           int    `json:"index"`
	Text            string `json:"text,omitempty"`
	Image           []byte `json:"-"`
	Range           Range  `json:"range"`
	Overlap         int    `json:"overlap"`
	EstimatedTokens int    `json:"estimated_tokens"`
}

// EstimateTokens approximates the token cost of text using the common
// four-bytes-per-token heuristic. It intentionally overestimates short
// strings rather than undercounting.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
