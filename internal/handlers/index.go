package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"pdfqa/internal/contextutil"
	"pdfqa/internal/indexer"
)

// DefaultMaxUploadBytes bounds the size of an uploaded PDF.
const DefaultMaxUploadBytes = 64 << 20

// FileIndexer indexes one stored file under a source name.
type FileIndexer interface {
	IndexFile(ctx context.Context, path, source string) (indexer.FileResult, error)
}

// IndexHandler handles PDF uploads and indexes them synchronously.
type IndexHandler struct {
	indexer        FileIndexer
	uploadDir      string
	maxUploadBytes int64
}

// NewIndexHandler creates a new IndexHandler that stores uploads in uploadDir.
func NewIndexHandler(fileIndexer FileIndexer, uploadDir string) *IndexHandler {
	return &IndexHandler{
		indexer:        fileIndexer,
		uploadDir:      uploadDir,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
}

// IndexResponse represents the response from the index endpoint.
//
// swagger:model IndexResponse
type IndexResponse struct {
	Filename      string `json:"filename"`
	ChunksIndexed int    `json:"chunks_indexed"`
	Message       string `json:"message"`
}

// ServeHTTP handles multipart PDF uploads in the "file" field.
//
// swagger:route POST /index-pdf index indexPDF
//
// Upload a PDF, store it under the upload directory and index its pages.
//
// responses:
//
//	'200': IndexResponse
//	'400': ErrorResponse
//	'422': ErrorResponse
func (h *IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		logger.WarnContext(ctx, "invalid upload", "error", err)
		writeError(w, http.StatusBadRequest, "A PDF file must be uploaded in the `file` field.")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	if contentType(header.Header.Get("Content-Type")) != "application/pdf" {
		logger.WarnContext(ctx, "rejected non-PDF upload", "content_type", header.Header.Get("Content-Type"))
		writeError(w, http.StatusBadRequest, "Only PDF files are supported.")
		return
	}

	filename := filepath.Base(filepath.Clean("/" + header.Filename))
	if filename == "/" || filename == "." || filename == "" {
		writeError(w, http.StatusBadRequest, "Invalid file name.")
		return
	}

	path, err := h.save(file, filename)
	if err != nil {
		logger.ErrorContext(ctx, "failed to save upload", "filename", filename, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	result, err := h.indexer.IndexFile(ctx, path, filename)
	if err != nil {
		switch {
		case errors.Is(err, indexer.ErrNoText):
			logger.WarnContext(ctx, "uploaded PDF has no text", "filename", filename)
			writeError(w, http.StatusUnprocessableEntity, "No extractable text found in the PDF.")
		case errors.Is(err, indexer.ErrUnsupportedFormat):
			writeError(w, http.StatusBadRequest, "Only PDF files are supported.")
		default:
			logger.ErrorContext(ctx, "failed to index upload", "filename", filename, "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	message := "PDF indexed successfully."
	if result.Unchanged {
		message = "PDF unchanged; existing index kept."
	}

	logger.InfoContext(ctx, "indexed upload", "filename", filename, "chunks", result.Chunks, "unchanged", result.Unchanged)
	writeJSON(ctx, w, http.StatusOK, IndexResponse{
		Filename:      filename,
		ChunksIndexed: result.Chunks,
		Message:       message,
	})
}

// save writes the upload to a temp file and renames it into place.
func (h *IndexHandler) save(src io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	tmp, err := os.CreateTemp(h.uploadDir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close upload: %w", err)
	}

	dest := filepath.Join(h.uploadDir, filename)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	return dest, nil
}

func contentType(header string) string {
	mediaType, _, _ := strings.Cut(header, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}
