package parser

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFProvider extracts per-page text from a PDF, ordered by visual
// position rather than content-stream order.
type PDFProvider struct{}

func (p *PDFProvider) SupportedFormats() []string { return []string{"pdf"} }

func (p *PDFProvider) Pages(ctx context.Context, path string) ([]Page, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	pages := make([]Page, 0, totalPages)

	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := extractPageTextOrdered(page)
		if err != nil {
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		pages = append(pages, Page{PageNumber: i, Text: text})
	}

	return pages, nil
}

// extractPageTextOrdered extracts text from a PDF page sorted by visual
// position (top-to-bottom, left-to-right). The default GetPlainText reads
// text in PDF object order which can differ from visual layout — headings
// may appear after the body text they label.
//
// This function groups Content() elements into visual lines by Y proximity
// (preserving the content-stream order within each line — which GetPlainText
// relies on for correct character sequencing), then sorts the lines by Y so
// the result follows top-to-bottom reading order.
func extractPageTextOrdered(page pdf.Page) (string, error) {
	content := page.Content()
	if len(content.Text) == 0 {
		return page.GetPlainText(nil)
	}

	// Group consecutive text elements into visual lines by Y proximity.
	// We preserve the content-stream order within each line — sorting by X
	// would garble text because some PDFs use negative text matrices.
	const lineTolerance = 3.0

	type visualLine struct {
		y   float64 // representative Y (from first element)
		buf strings.Builder
	}

	var lines []*visualLine
	var cur *visualLine

	for _, t := range content.Text {
		if cur == nil || math.Abs(t.Y-cur.y) > lineTolerance {
			lines = append(lines, &visualLine{y: t.Y})
			cur = lines[len(lines)-1]
		}
		cur.buf.WriteString(t.S)
	}

	// Sort lines by Y descending — higher Y = higher on the page in PDF
	// coordinates (origin at bottom-left).
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].y > lines[j].y
	})

	// Build the result.
	var parts []string
	for _, l := range lines {
		text := strings.TrimSpace(l.buf.String())
		if text != "" {
			parts = append(parts, text)
		}
	}

	result := strings.Join(parts, "\n")
	if strings.TrimSpace(result) == "" {
		return page.GetPlainText(nil)
	}

	return result, nil
}
