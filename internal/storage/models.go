package storage

import "time"

// DocumentRecord represents an indexed source document (one uploaded PDF or Markdown file).
type DocumentRecord struct {
	ID        string    // UUID
	Source    string    // Origin identifier, the file name as uploaded
	Hash      string    // SHA256 hex string of file content
	PageCount int       // Number of pages the loader produced
	IndexedAt time.Time
}

// ChunkRecord represents a chunk of document text, indexed for vector search.
type ChunkRecord struct {
	ID         string // UUID (same as Qdrant point ID)
	DocumentID string // UUID (foreign key to documents.id)
	ChunkIndex int    // Index within document (starts at 0)
	Page       int    // 1-based page number, 0 when the format has no pages
	Text       string // Chunk text content
}
