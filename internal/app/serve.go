package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const shutdownTimeout = 15 * time.Second

// Serve runs the API server until ctx is cancelled, then shuts it down gracefully.
// When CORPUS_DIR is configured, the corpus is indexed in the background.
func (a *App) Serve(ctx context.Context) error {
	if a.Config.CorpusDir != "" {
		go a.indexCorpus(ctx, a.Config.CorpusDir)
	}

	server := &http.Server{
		Addr:              ":" + a.Config.APIPort,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	}
}

func (a *App) indexCorpus(ctx context.Context, dir string) {
	slog.Info("Starting background indexing", "dir", dir)
	report, err := a.IndexPaths(ctx, dir)
	if err != nil {
		slog.Error("Indexing completed with errors", "error", err)
		return
	}
	slog.Info("Indexing completed successfully",
		"documents", report.DocsProcessed,
		"unchanged", report.DocsUnchanged,
		"chunks", report.ChunksIndexed,
	)
}
