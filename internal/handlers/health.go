package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"pdfqa/internal/contextutil"
	"pdfqa/internal/vectorstore"
)

// CollectionDescriber reads the state of the chunk collection.
type CollectionDescriber interface {
	DescribeCollection(ctx context.Context, collection string) (vectorstore.CollectionInfo, error)
}

// DocumentCounter counts the documents in the SQLite registry.
type DocumentCounter interface {
	Count(ctx context.Context) (int, error)
}

// Health states.
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

// HealthHandler reports whether questions can be answered: the chunk collection must be
// reachable and sized for the configured embeddings, and the document registry must respond.
type HealthHandler struct {
	collections CollectionDescriber
	documents   DocumentCounter
	collection  string
	vectorSize  int
	timeout     time.Duration
}

// NewHealthHandler creates a HealthHandler for the named collection.
// vectorSize is the embedding dimension the collection is expected to hold.
func NewHealthHandler(collections CollectionDescriber, collection string, vectorSize int, documents DocumentCounter) *HealthHandler {
	return &HealthHandler{
		collections: collections,
		documents:   documents,
		collection:  collection,
		vectorSize:  vectorSize,
		timeout:     5 * time.Second,
	}
}

// IndexHealth summarises what is indexed.
//
// swagger:model IndexHealth
type IndexHealth struct {
	Collection         string `json:"collection"`
	CollectionStatus   string `json:"collection_status,omitempty"`
	VectorSize         int    `json:"vector_size"`
	ExpectedVectorSize int    `json:"expected_vector_size"`
	Points             int    `json:"points"`
	Documents          int    `json:"documents"`
}

// HealthResponse represents the health check response.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// healthy, degraded or unhealthy
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Index     IndexHealth       `json:"index"`
	Issues    []string          `json:"issues,omitempty"`
}

// ServeHTTP handles GET /api/health.
//
// swagger:route GET /api/health healthCheck
//
// Reports the chunk collection and document registry.
// An unreachable store or a vector size mismatch is unhealthy (503).
// Documents recorded without any vectors is degraded (200).
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
//	'503':
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resp := h.check(checkCtx, logger)
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339)

	status := http.StatusOK
	if resp.Status == HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(ctx, w, status, resp)
}

func (h *HealthHandler) check(ctx context.Context, logger *slog.Logger) HealthResponse {
	resp := HealthResponse{
		Status: HealthHealthy,
		Checks: make(map[string]string),
		Index: IndexHealth{
			Collection:         h.collection,
			ExpectedVectorSize: h.vectorSize,
		},
	}
	unhealthy := func(check, state, issue string) {
		resp.Checks[check] = state
		resp.Issues = append(resp.Issues, issue)
		resp.Status = HealthUnhealthy
	}

	collectionOK := false
	info, err := h.collections.DescribeCollection(ctx, h.collection)
	if err != nil {
		logger.WarnContext(ctx, "chunk collection unavailable", "collection", h.collection, "error", err)
		unhealthy("vector_store", "error", "vector_store_unavailable")
	} else {
		resp.Checks["vector_store"] = "ok"
		resp.Index.CollectionStatus = info.Status
		resp.Index.VectorSize = info.VectorSize
		resp.Index.Points = info.Points

		if err := info.CheckVectorSize(h.vectorSize); err != nil {
			logger.WarnContext(ctx, "chunk collection cannot serve queries", "error", err)
			unhealthy("vector_size", "mismatch", "vector_size_mismatch")
		} else {
			resp.Checks["vector_size"] = "ok"
			collectionOK = true
		}
	}

	documents, err := h.documents.Count(ctx)
	if err != nil {
		logger.WarnContext(ctx, "document registry unavailable", "error", err)
		unhealthy("document_store", "error", "document_store_unavailable")
		return resp
	}
	resp.Checks["document_store"] = "ok"
	resp.Index.Documents = documents

	if !collectionOK {
		return resp
	}
	switch {
	case documents == 0:
		resp.Checks["index"] = "empty"
	case resp.Index.Points == 0:
		// Documents are recorded but their vectors are gone; every question gets the no-answer reply.
		resp.Checks["index"] = "out_of_sync"
		resp.Issues = append(resp.Issues, "index_out_of_sync")
		resp.Status = HealthDegraded
	default:
		resp.Checks["index"] = "ok"
	}
	return resp
}
