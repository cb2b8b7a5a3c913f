package indexer

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultChunkSize is the splitter's target chunk length in characters.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the number of characters shared by adjacent chunks.
	DefaultChunkOverlap = 200
)

// Chunker splits page text into overlapping chunks with a recursive character splitter.
// Chunks never span pages so every chunk keeps a single page number.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
}

// NewChunker creates a chunker. Invalid sizes fall back to the defaults.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = min(DefaultChunkOverlap, size/5)
	}
	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		),
	}
}

// Split cuts each page into chunks, numbering them across the whole document.
func (c *Chunker) Split(pages []Page) ([]Chunk, error) {
	var chunks []Chunk
	for _, page := range pages {
		segments, err := c.splitter.SplitText(page.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to split page %d: %w", page.Number, err)
		}
		for _, segment := range segments {
			segment = strings.TrimSpace(segment)
			if segment == "" {
				continue
			}
			chunks = append(chunks, Chunk{
				Index: len(chunks),
				Page:  page.Number,
				Text:  segment,
			})
		}
	}
	return chunks, nil
}
