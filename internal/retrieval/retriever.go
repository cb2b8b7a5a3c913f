package retrieval

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks pdfqa/internal/retrieval Embedder
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_query_expander.go -package=mocks pdfqa/internal/retrieval QueryExpander

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"pdfqa/internal/contextutil"
	"pdfqa/internal/metrics"
	"pdfqa/internal/storage"
	"pdfqa/internal/vectorstore"
)

const (
	// DefaultK is the number of chunks kept when no K is configured.
	DefaultK = 5
	// MaxK caps the number of chunks in one context block.
	MaxK = 20
	// MaxRewrites caps the number of alternative queries searched per question.
	MaxRewrites = 5
)

// ErrSearchFailed marks a backend or transport failure during retrieval.
// It is distinct from an empty result, which is not an error.
var ErrSearchFailed = errors.New("retrieval failed")

// Embedder turns query texts into vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// QueryExpander proposes up to n alternative formulations of a question.
type QueryExpander interface {
	Expand(ctx context.Context, question string, n int) ([]string, error)
}

// Retriever searches the vector store and builds the context block for a question.
// It holds no per-request state and is safe for concurrent use.
type Retriever struct {
	embedder    Embedder
	vectorStore vectorstore.VectorStore
	collection  string
	chunkRepo   storage.ChunkStore
	k           int
	expander    QueryExpander
	rewrites    int
	metrics     *metrics.Recorder
	logger      *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithK sets the number of chunks kept, clamped to [1, MaxK].
func WithK(k int) Option {
	return func(r *Retriever) {
		if k <= 0 {
			k = DefaultK
		}
		r.k = min(k, MaxK)
	}
}

// WithExpander enables query expansion with up to rewrites alternative queries.
func WithExpander(expander QueryExpander, rewrites int) Option {
	return func(r *Retriever) {
		r.expander = expander
		r.rewrites = max(0, min(rewrites, MaxRewrites))
	}
}

// WithMetrics records retrieval outcomes and stage latency.
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Retriever) {
		r.metrics = m
	}
}

// NewRetriever creates a Retriever.
func NewRetriever(
	embedder Embedder,
	vectorStore vectorstore.VectorStore,
	collection string,
	chunkRepo storage.ChunkStore,
	opts ...Option,
) *Retriever {
	r := &Retriever{
		embedder:    embedder,
		vectorStore: vectorStore,
		collection:  collection,
		chunkRepo:   chunkRepo,
		k:           DefaultK,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// K returns the configured number of chunks per context block.
func (r *Retriever) K() int {
	return r.k
}

func (r *Retriever) getLogger(ctx context.Context) *slog.Logger {
	if contextutil.HasLogger(ctx) {
		return contextutil.LoggerFromContext(ctx)
	}
	return r.logger
}

// Retrieve searches for chunks relevant to question and serializes them.
// sources optionally restricts the search to the named documents.
// Zero matches yield an empty Result and a nil error; backend failures wrap ErrSearchFailed.
func (r *Retriever) Retrieve(ctx context.Context, question string, sources []string) (Result, error) {
	logger := r.getLogger(ctx)
	defer r.metrics.StartStage(metrics.StageRetrieve)()

	queries := r.queries(ctx, question)

	vectors, err := r.embedder.EmbedTexts(ctx, queries)
	if err != nil {
		return r.fail(ctx, "failed to embed queries", err)
	}
	if len(vectors) != len(queries) {
		return r.fail(ctx, "failed to embed queries", fmt.Errorf("expected %d vectors, got %d", len(queries), len(vectors)))
	}

	var filters map[string]any
	if len(sources) > 0 {
		filters = map[string]any{vectorstore.FilterSource: sources}
	}

	// Keep the best score per point; first-seen order breaks ties
	best := make(map[string]int)
	var hits []vectorstore.SearchResult
	for i, vec := range vectors {
		results, err := r.vectorStore.Search(ctx, r.collection, vec, r.k, filters)
		if err != nil {
			return r.fail(ctx, "failed to search vector store", err)
		}
		logger.DebugContext(ctx, "query searched", "query_index", i, "results", len(results))

		for _, res := range results {
			if pos, ok := best[res.PointID]; ok {
				if res.Score > hits[pos].Score {
					hits[pos] = res
				}
				continue
			}
			best[res.PointID] = len(hits)
			hits = append(hits, res)
		}
	}

	slices.SortStableFunc(hits, func(a, b vectorstore.SearchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(hits) > r.k {
		hits = hits[:r.k]
	}

	chunks := make([]Chunk, 0, len(hits))
	for _, hit := range hits {
		rec, err := r.chunkRepo.GetByID(ctx, hit.PointID)
		if errors.Is(err, storage.ErrNotFound) {
			// Point outlived its chunk row (interrupted re-index)
			logger.WarnContext(ctx, "chunk missing for vector point, skipping", "point_id", hit.PointID)
			continue
		}
		if err != nil {
			return r.fail(ctx, "failed to load chunk text", err)
		}

		chunks = append(chunks, Chunk{
			Content: rec.Text,
			Page:    pageFromMeta(hit.Meta, rec.Page),
			Source:  stringFromMeta(hit.Meta, "source"),
		})
	}

	if len(chunks) == 0 {
		r.metrics.IncRetrieval(metrics.RetrievalEmpty)
		logger.InfoContext(ctx, "no relevant chunks found", "queries", len(queries))
		return Result{Citations: map[string]CitationRef{}}, nil
	}

	contextBlock, citations := Serialize(chunks)
	r.metrics.IncRetrieval(metrics.RetrievalHit)
	logger.InfoContext(ctx, "retrieval completed", "queries", len(queries), "chunks", len(chunks), "k", r.k)

	return Result{
		Chunks:    chunks,
		Context:   contextBlock,
		Citations: citations,
	}, nil
}

// queries returns the question followed by distinct rewrites.
// Expansion failures are logged and ignored.
func (r *Retriever) queries(ctx context.Context, question string) []string {
	queries := []string{question}
	if r.expander == nil || r.rewrites == 0 {
		return queries
	}

	done := r.metrics.StartStage(metrics.StageExpand)
	alternatives, err := r.expander.Expand(ctx, question, r.rewrites)
	done()
	if err != nil {
		r.getLogger(ctx).WarnContext(ctx, "query expansion failed, using question only", "error", err)
		return queries
	}

	seen := map[string]bool{strings.ToLower(strings.TrimSpace(question)): true}
	for _, alt := range alternatives {
		key := strings.ToLower(strings.TrimSpace(alt))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		queries = append(queries, strings.TrimSpace(alt))
		if len(queries) > r.rewrites {
			break
		}
	}
	return queries
}

func (r *Retriever) fail(ctx context.Context, msg string, err error) (Result, error) {
	r.metrics.IncRetrieval(metrics.RetrievalError)
	r.getLogger(ctx).ErrorContext(ctx, msg, "error", err)
	return Result{}, fmt.Errorf("%w: %s: %w", ErrSearchFailed, msg, err)
}

// pageFromMeta reads the 1-based page from the point payload, falling back to the stored chunk page.
// Zero or absent pages render as unknown.
func pageFromMeta(meta map[string]any, stored int) string {
	page := stored
	switch v := meta["page"].(type) {
	case int64:
		page = int(v)
	case int:
		page = v
	case float64:
		page = int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			page = n
		} else if v != "" {
			return v
		}
	}
	if page <= 0 {
		return ""
	}
	return strconv.Itoa(page)
}

func stringFromMeta(meta map[string]any, key string) string {
	s, _ := meta[key].(string)
	return s
}
