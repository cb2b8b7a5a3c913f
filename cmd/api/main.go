package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"pdfqa/internal/app"
	"pdfqa/internal/config"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API answers questions about indexed PDF documents with inline [C#] citations.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: PDF QA API
//   description: |
//     Citation-grounded question answering over an indexed PDF corpus.
//     Every factual sentence of an answer cites a retrieved chunk, or the API declines to answer.
//   version: 0.1.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	app.SetupLogging(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("Failed to release resources", "error", err)
		}
	}()

	if err := a.Serve(ctx); err != nil {
		slog.Error("API server stopped", "error", err)
	}
}
