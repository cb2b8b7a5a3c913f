package indexer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"pdfqa/internal/contextutil"
	"pdfqa/internal/corpus"
	"pdfqa/internal/metrics"
	"pdfqa/internal/storage"
	"pdfqa/internal/vectorstore"
)

// Embedder turns chunk texts into vectors, one per input, in order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Pipeline orchestrates the indexing of PDF and Markdown files into SQLite and Qdrant.
type Pipeline struct {
	docRepo     storage.DocumentStore
	chunkRepo   storage.ChunkStore
	embedder    Embedder
	vectorStore vectorstore.VectorStore
	collection  string
	chunker     *Chunker
	markdown    *MarkdownLoader
	metrics     *metrics.Recorder
	logger      *slog.Logger
}

// FileResult describes the outcome of indexing one file.
type FileResult struct {
	Source     string
	DocumentID string
	Pages      int
	Chunks     int
	Unchanged  bool // content hash matched the stored document; nothing was rewritten
	chunkTexts []string
}

// NewPipeline creates a new indexing pipeline. A nil chunker uses the default sizes.
func NewPipeline(
	docRepo storage.DocumentStore,
	chunkRepo storage.ChunkStore,
	embedder Embedder,
	vectorStore vectorstore.VectorStore,
	collection string,
	chunker *Chunker,
	recorder *metrics.Recorder,
) *Pipeline {
	if chunker == nil {
		chunker = NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	}
	return &Pipeline{
		docRepo:     docRepo,
		chunkRepo:   chunkRepo,
		embedder:    embedder,
		vectorStore: vectorStore,
		collection:  collection,
		chunker:     chunker,
		markdown:    NewMarkdownLoader(),
		metrics:     recorder,
		logger:      slog.Default(),
	}
}

// getLogger extracts logger from context or returns default logger.
func (p *Pipeline) getLogger(ctx context.Context) *slog.Logger {
	if contextutil.HasLogger(ctx) {
		return contextutil.LoggerFromContext(ctx)
	}
	return p.logger
}

// IndexFile indexes the file at path under the given source name.
// It skips files whose content hash is unchanged, and replaces the chunks and
// points of a document whose content changed.
func (p *Pipeline) IndexFile(ctx context.Context, path, source string) (FileResult, error) {
	logger := p.getLogger(ctx).With("source", source)
	defer p.metrics.StartStage(metrics.StageIndex)()

	result := FileResult{Source: source}

	content, err := os.ReadFile(path)
	if err != nil {
		return result, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	hash := sha256.Sum256(content)
	hashHex := fmt.Sprintf("%x", hash)

	existing, err := p.docRepo.GetBySource(ctx, source)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return result, fmt.Errorf("failed to check existing document: %w", err)
	}

	if existing != nil && existing.Hash == hashHex {
		count, err := p.chunkRepo.CountByDocument(ctx, existing.ID)
		if err != nil {
			return result, fmt.Errorf("failed to count chunks: %w", err)
		}
		logger.DebugContext(ctx, "skipping unchanged file", "hash", hashHex)
		result.DocumentID = existing.ID
		result.Pages = existing.PageCount
		result.Chunks = count
		result.Unchanged = true
		return result, nil
	}

	pages, err := p.loadPages(path, content)
	if err != nil {
		return result, err
	}
	result.Pages = len(pages)

	chunks, err := p.chunker.Split(pages)
	if err != nil {
		return result, fmt.Errorf("failed to chunk document: %w", err)
	}
	if len(chunks) == 0 {
		return result, fmt.Errorf("%w: %s", ErrNoText, source)
	}

	chunkTexts := make([]string, len(chunks))
	for i, chunk := range chunks {
		chunkTexts[i] = chunk.Text
	}

	// Embed before touching stored data so a failure leaves the previous index intact.
	embeddings, err := p.embedder.EmbedTexts(ctx, chunkTexts)
	if err != nil {
		return result, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return result, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(embeddings))
	}

	docID := uuid.New().String()
	if existing != nil {
		docID = existing.ID
		if err := p.removeChunks(ctx, logger, docID); err != nil {
			return result, err
		}
	}

	// The hash is recorded only after chunks and points are stored so an interrupted run is retried.
	doc := &storage.DocumentRecord{ID: docID, Source: source, PageCount: len(pages)}
	if err := p.docRepo.Upsert(ctx, doc); err != nil {
		return result, fmt.Errorf("failed to upsert document: %w", err)
	}
	docID = doc.ID

	points := make([]vectorstore.Point, len(chunks))
	for i, chunk := range chunks {
		chunkID := uuid.New().String()

		record := &storage.ChunkRecord{
			ID:         chunkID,
			DocumentID: docID,
			ChunkIndex: chunk.Index,
			Page:       chunk.Page,
			Text:       chunk.Text,
		}
		if err := p.chunkRepo.Insert(ctx, record); err != nil {
			return result, fmt.Errorf("failed to insert chunk: %w", err)
		}

		points[i] = vectorstore.Point{
			ID:  chunkID,
			Vec: embeddings[i],
			Meta: map[string]any{
				"document_id": docID,
				"source":      source,
				"page":        chunk.Page,
				"chunk_index": chunk.Index,
			},
		}
	}

	if err := p.vectorStore.Upsert(ctx, p.collection, points); err != nil {
		return result, fmt.Errorf("failed to upsert vectors: %w", err)
	}

	doc.Hash = hashHex
	if err := p.docRepo.Upsert(ctx, doc); err != nil {
		return result, fmt.Errorf("failed to record document hash: %w", err)
	}

	p.metrics.AddIndexedChunks(len(chunks))
	result.DocumentID = docID
	result.Chunks = len(chunks)
	result.chunkTexts = chunkTexts

	logger.InfoContext(ctx, "indexed document", "pages", len(pages), "chunks", len(chunks))
	return result, nil
}

// removeChunks deletes a document's previous points and chunk rows.
func (p *Pipeline) removeChunks(ctx context.Context, logger *slog.Logger, docID string) error {
	oldChunkIDs, err := p.chunkRepo.ListIDsByDocument(ctx, docID)
	if err != nil {
		return fmt.Errorf("failed to list old chunk IDs: %w", err)
	}
	if len(oldChunkIDs) == 0 {
		return nil
	}

	if err := p.vectorStore.Delete(ctx, p.collection, oldChunkIDs); err != nil {
		// Stale points without a chunk row are skipped at retrieval time.
		logger.WarnContext(ctx, "failed to delete old chunks from Qdrant", "error", err, "count", len(oldChunkIDs))
	}

	if err := p.chunkRepo.DeleteByDocument(ctx, docID); err != nil {
		return fmt.Errorf("failed to delete old chunks from SQLite: %w", err)
	}
	return nil
}

// IndexAll indexes every scanned file, using its relative path as the source.
// Errors for individual files are recorded in the report but don't stop the run.
func (p *Pipeline) IndexAll(ctx context.Context, files []corpus.File) (*Report, error) {
	logger := p.getLogger(ctx)
	logger.InfoContext(ctx, "starting indexing", "total_files", len(files))

	report := newReport()
	var tokenCounts []int

	for _, file := range files {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		result, err := p.IndexFile(ctx, file.AbsPath, file.RelPath)
		report.DocsProcessed++
		if err != nil {
			report.DocsFailed++
			report.Failures[file.RelPath] = err.Error()
			logger.ErrorContext(ctx, "failed to index file", "rel_path", file.RelPath, "error", err)
			continue
		}

		if result.Unchanged {
			report.DocsUnchanged++
			continue
		}
		report.ChunksIndexed += result.Chunks
		for _, t := range result.chunkTexts {
			tokenCounts = append(tokenCounts, estimateTokens(t))
		}
	}

	report.ChunkTokenStats = computeTokenStats(tokenCounts)

	logger.InfoContext(ctx, "indexing completed",
		"total_files", len(files),
		"unchanged", report.DocsUnchanged,
		"chunks", report.ChunksIndexed,
		"errors", report.DocsFailed,
	)

	if report.DocsFailed > 0 {
		return report, fmt.Errorf("indexing completed with %d errors", report.DocsFailed)
	}
	return report, nil
}
