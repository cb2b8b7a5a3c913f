package indexer

// Page is the extracted text of one page of a source document.
type Page struct {
	Number int    // 1-based page number, 0 when the format has no pages
	Text   string
}

// Chunk represents a piece of page text sized for embedding.
type Chunk struct {
	Index int // Chunk index within the document (starts at 0)
	Page  int // Page the chunk was cut from
	Text  string
}
