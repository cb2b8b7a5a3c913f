package indexer

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewChunker_Defaults(t *testing.T) {
	for _, tc := range []struct{ size, overlap int }{{0, 0}, {-5, 10}, {100, 100}, {100, -1}} {
		if c := NewChunker(tc.size, tc.overlap); c == nil {
			t.Errorf("NewChunker(%d, %d) returned nil", tc.size, tc.overlap)
		}
	}
}

func TestChunker_Split(t *testing.T) {
	chunker := NewChunker(50, 10)

	long := strings.Repeat("Vector search finds similar embeddings quickly. ", 6)
	pages := []Page{
		{Number: 1, Text: "Short first page."},
		{Number: 2, Text: long},
		{Number: 3, Text: "   "},
	}

	chunks, err := chunker.Split(pages)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	if len(chunks) < 3 {
		t.Fatalf("Split() returned %d chunks, want at least 3", len(chunks))
	}
	if chunks[0].Page != 1 || chunks[0].Text != "Short first page." {
		t.Errorf("Split() first chunk = %+v", chunks[0])
	}

	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d Index = %d", i, c.Index)
		}
		if c.Page == 3 {
			t.Errorf("chunk %d cut from blank page", i)
		}
		if c.Text == "" || c.Text != strings.TrimSpace(c.Text) {
			t.Errorf("chunk %d text %q not trimmed", i, c.Text)
		}
		if n := utf8.RuneCountInString(c.Text); n > 50 {
			t.Errorf("chunk %d has %d runes, want <= 50", i, n)
		}
	}
}

func TestChunker_Split_Empty(t *testing.T) {
	chunks, err := NewChunker(100, 10).Split(nil)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("Split(nil) = %+v, want no chunks", chunks)
	}
}
