package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks pdfqa/internal/vectorstore VectorStore

import (
	"context"
	"errors"
	"fmt"
)

// ErrVectorSizeMismatch marks a collection built for a different embedding size.
var ErrVectorSizeMismatch = errors.New("collection vector size mismatch")

// StatusUnknown is reported when Qdrant does not say how a collection is doing.
const StatusUnknown = "unknown"

// Filter keys understood by Search.
const (
	// FilterSource restricts results to chunks whose "source" payload matches.
	// The value is a string or a []string (any-of).
	FilterSource = "source"
	// FilterDocumentID restricts results to one document.
	FilterDocumentID = "document_id"
)

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search performs a similarity search with optional filters.
	Search(ctx context.Context, collection string, query []float32, k int, filters map[string]any) ([]SearchResult, error)

	// Delete removes points by their IDs.
	Delete(ctx context.Context, collection string, ids []string) error
}

// CollectionInfo describes a chunk collection as Qdrant reports it.
type CollectionInfo struct {
	Name       string
	VectorSize int
	Distance   string
	Points     int
	Status     string // Green, Yellow, Grey, Red or unknown
}

// CheckVectorSize fails with ErrVectorSizeMismatch unless the collection holds want-dimensional vectors.
func (c CollectionInfo) CheckVectorSize(want int) error {
	if c.VectorSize != want {
		return fmt.Errorf("%w: %s holds %d-dimensional vectors, embeddings have %d",
			ErrVectorSizeMismatch, c.Name, c.VectorSize, want)
	}
	return nil
}
