// Package parser provides raw per-page text for a document (spec §6:
// "pages: one record per page with doc_id, page_number, text"). It is
// intentionally thin: structure-aware splitting is the chunker's job
// (C2), not the parser's.
package parser

import "context"

// Page is one page's raw extracted text.
type Page struct {
	PageNumber int
	Text       string
}

// PageProvider extracts raw per-page text from a document file.
type PageProvider interface {
	Pages(ctx context.Context, path string) ([]Page, error)
	SupportedFormats() []string
}
