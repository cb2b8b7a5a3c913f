package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pdfqa/internal/handlers"
	"pdfqa/internal/metrics"
	"pdfqa/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	QAService          service.QAService
	Indexer            handlers.FileIndexer
	Collections        handlers.CollectionDescriber
	Collection         string
	VectorSize         int
	Documents          handlers.DocumentCounter
	UploadDir          string
	Metrics            *metrics.Recorder
	CORSAllowedOrigins []string
	Version            string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS(deps.CORSAllowedOrigins))

	r.Method(http.MethodGet, "/", handlers.NewRootHandler(deps.Version))
	r.Method(http.MethodPost, "/qa", handlers.NewQAHandler(deps.QAService))
	r.Method(http.MethodPost, "/index-pdf", handlers.NewIndexHandler(deps.Indexer, deps.UploadDir))
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", handlers.NewHealthHandler(deps.Collections, deps.Collection, deps.VectorSize, deps.Documents))
	})

	return r
}
