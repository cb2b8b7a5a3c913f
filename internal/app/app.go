// Package app wires the process-scoped clients and pipeline shared by the binaries.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"pdfqa/internal/citation"
	"pdfqa/internal/config"
	"pdfqa/internal/corpus"
	apphttp "pdfqa/internal/http"
	"pdfqa/internal/indexer"
	"pdfqa/internal/llm"
	"pdfqa/internal/metrics"
	"pdfqa/internal/rag"
	"pdfqa/internal/retrieval"
	"pdfqa/internal/service"
	"pdfqa/internal/storage"
	"pdfqa/internal/vectorstore"
)

// Version is reported by the root endpoint and the CLI.
const Version = "0.1.0"

// App holds the singletons created once at startup and reused for every request.
type App struct {
	Config      *config.Config
	DB          *sql.DB
	VectorStore *vectorstore.QdrantStore
	Documents   *storage.DocumentRepo
	Indexer     *indexer.Pipeline
	QAService   service.QAService
	Metrics     *metrics.Recorder
}

// SetupLogging installs the default slog logger using the configured level and format.
func SetupLogging(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)
	return logger
}

// Build opens storage, connects to Qdrant and the model servers, and assembles the pipeline.
// Close must be called to release the database and gRPC connection.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a, err := OpenRegistry(cfg)
	if err != nil {
		return nil, err
	}
	a.Metrics = metrics.New()
	chunkRepo := storage.NewChunkRepo(a.DB)

	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}
	a.VectorStore = vectorStore

	if err := vectorStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.QdrantVectorSize); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to ensure Qdrant collection: %w", err)
	}

	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize)
	if _, err := embedder.EmbedQuery(ctx, "test"); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to validate embedding client: %w", err)
	}
	slog.Info("Embedding client validated", "vector_size", cfg.QdrantVectorSize)

	a.Indexer = indexer.NewPipeline(
		a.Documents,
		chunkRepo,
		embedder,
		vectorStore,
		cfg.QdrantCollection,
		indexer.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		a.Metrics,
	)

	// One generator connection serves the draft, verification and expansion stages.
	generator := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName, cfg.LLMTemperature)
	enforcer := citation.NewEnforcer()

	retrieverOpts := []retrieval.Option{
		retrieval.WithK(cfg.RetrievalK),
		retrieval.WithMetrics(a.Metrics),
	}
	if cfg.QueryRewrites > 0 {
		retrieverOpts = append(retrieverOpts, retrieval.WithExpander(rag.NewExpander(generator), cfg.QueryRewrites))
	}
	retriever := retrieval.NewRetriever(embedder, vectorStore, cfg.QdrantCollection, chunkRepo, retrieverOpts...)

	engine := rag.NewEngine(
		retriever,
		rag.NewDrafter(generator),
		rag.NewVerifier(generator, enforcer, a.Metrics),
		a.Metrics,
	)
	a.QAService = service.NewQAService(engine, enforcer, a.Metrics)
	slog.Info("QA pipeline initialized", "k", retriever.K(), "query_rewrites", cfg.QueryRewrites)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)

	return a, nil
}

// OpenRegistry opens and migrates the SQLite document registry only.
// Commands that just read the registry use it instead of Build.
func OpenRegistry(cfg *config.Config) (*App, error) {
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a := &App{Config: cfg, DB: db}

	if err := storage.Migrate(db); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	a.Documents = storage.NewDocumentRepo(db)
	return a, nil
}

// Router returns the HTTP handler serving the API.
func (a *App) Router() http.Handler {
	return apphttp.NewRouter(&apphttp.Deps{
		QAService:          a.QAService,
		Indexer:            a.Indexer,
		Collections:        a.VectorStore,
		Collection:         a.Config.QdrantCollection,
		VectorSize:         a.Config.QdrantVectorSize,
		Documents:          a.Documents,
		UploadDir:          a.Config.UploadDir,
		Metrics:            a.Metrics,
		CORSAllowedOrigins: a.Config.CORSAllowedOrigins,
		Version:            Version,
	})
}

// IndexPaths scans the given files and directories and indexes every PDF and Markdown document found.
func (a *App) IndexPaths(ctx context.Context, paths ...string) (*indexer.Report, error) {
	files, err := corpus.NewScanner(paths...).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan documents: %w", err)
	}
	return a.Indexer.IndexAll(ctx, files)
}

// Close releases the database and vector store connections.
func (a *App) Close() error {
	var errs []error
	if a.VectorStore != nil {
		if err := a.VectorStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Qdrant client: %w", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
