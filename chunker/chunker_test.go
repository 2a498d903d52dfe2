package chunker

import (
	"strings"
	"testing"
)

func TestChunkIDsAreStableAndOrdered(t *testing.T) {
	c := New(Config{TargetChars: 40, MaxChars: 80, MinChars: 5, OverlapBlocks: 0})
	pages := []CleanPage{
		{DocID: "FIPS-203", PageNumber: 1, CleanText: "First paragraph of reasonable length here.\n\nSecond paragraph also has some length to it."},
	}
	chunks := c.Chunk(pages)
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	for i, ch := range chunks {
		want := "FIPS-203::p0001::c00" // prefix
		if !strings.HasPrefix(ch.ChunkID, want) {
			t.Errorf("chunk %d id = %q, want prefix %q", i, ch.ChunkID, want)
		}
		if ch.StartPage != 1 || ch.EndPage != 1 {
			t.Errorf("chunk %d start/end page = %d/%d, want 1/1", i, ch.StartPage, ch.EndPage)
		}
	}
}

func TestChunkOversizedVerbatimBlockStandsAlone(t *testing.T) {
	c := New(Config{TargetChars: 50, MaxChars: 60, MinChars: 5, OverlapBlocks: 0})
	var b strings.Builder
	for i := 1; i <= 20; i++ {
		b.WriteString("1: step of the algorithm that repeats\n")
	}
	pages := []CleanPage{{DocID: "D", PageNumber: 1, CleanText: b.String()}}
	chunks := c.Chunk(pages)
	if len(chunks) != 1 {
		t.Fatalf("expected the oversized verbatim block to stand alone as one chunk, got %d", len(chunks))
	}
	if chunks[0].CharLen <= 60 {
		t.Errorf("expected oversized chunk to exceed MaxChars, got %d", chunks[0].CharLen)
	}
}

func TestChunkNeverEmitsEmptyText(t *testing.T) {
	c := New(DefaultConfig())
	pages := []CleanPage{{DocID: "D", PageNumber: 1, CleanText: "   \n\n   "}}
	chunks := c.Chunk(pages)
	if len(chunks) != 0 {
		t.Errorf("expected no chunks from blank page, got %d", len(chunks))
	}
}

func TestChunkShortPageStillEmitsOneChunk(t *testing.T) {
	c := New(Config{TargetChars: 1000, MaxChars: 2000, MinChars: 500, OverlapBlocks: 1})
	pages := []CleanPage{{DocID: "D", PageNumber: 3, CleanText: "A short page."}}
	chunks := c.Chunk(pages)
	if len(chunks) != 1 {
		t.Fatalf("expected one chunk for a short page even under MinChars, got %d", len(chunks))
	}
	if chunks[0].Text != "A short page." {
		t.Errorf("chunk text = %q, want %q", chunks[0].Text, "A short page.")
	}
}

func TestIsVerbatimishTablePipe(t *testing.T) {
	if !isVerbatimish("| a | b |") {
		t.Error("expected pipe-delimited line to be verbatim-ish")
	}
}

func TestIsVerbatimishProse(t *testing.T) {
	if isVerbatimish("This is ordinary prose text.") {
		t.Error("expected ordinary prose not to be verbatim-ish")
	}
}
