package parser

import (
	"context"
	"testing"
)

func TestPDFProviderSupportedFormats(t *testing.T) {
	p := &PDFProvider{}
	formats := p.SupportedFormats()
	if len(formats) != 1 || formats[0] != "pdf" {
		t.Errorf("expected [pdf], got %v", formats)
	}
}

func TestPDFProviderPagesReturnsErrorForMissingFile(t *testing.T) {
	p := &PDFProvider{}
	if _, err := p.Pages(context.Background(), "/nonexistent/does-not-exist.pdf"); err == nil {
		t.Error("expected an error opening a missing file")
	}
}
