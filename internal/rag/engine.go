package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pdfqa/internal/citation"
	"pdfqa/internal/contextutil"
	"pdfqa/internal/metrics"
	"pdfqa/internal/retrieval"
)

// ErrGeneration marks a failed call to the text generator.
var ErrGeneration = errors.New("generation failed")

// Engine provides RAG (Retrieval-Augmented Generation) functionality.
type Engine interface {
	// Ask answers a question by retrieving chunks, drafting and verifying an answer.
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)
}

// Retriever builds the context block for a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string, sources []string) (retrieval.Result, error)
}

// ragEngine implements the Engine interface.
type ragEngine struct {
	retriever Retriever
	drafter   *Drafter
	verifier  *Verifier
	metrics   *metrics.Recorder
	logger    *slog.Logger
}

// NewEngine creates a new RAG engine. The drafter and verifier may share one generator.
func NewEngine(retriever Retriever, drafter *Drafter, verifier *Verifier, m *metrics.Recorder) Engine {
	return &ragEngine{
		retriever: retriever,
		drafter:   drafter,
		verifier:  verifier,
		metrics:   m,
		logger:    slog.Default(),
	}
}

// getLogger extracts logger from context or returns default logger.
func (e *ragEngine) getLogger(ctx context.Context) *slog.Logger {
	if contextutil.HasLogger(ctx) {
		return contextutil.LoggerFromContext(ctx)
	}
	return e.logger
}

// Ask runs retrieve, draft and verify in sequence. Each stage fully consumes the previous one.
// An empty retrieval answers with the sentinel without calling the generator.
func (e *ragEngine) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	logger := e.getLogger(ctx)
	logger.InfoContext(ctx, "RAG query started", "question_length", len(req.Question), "sources", req.Sources)

	res, err := e.retriever.Retrieve(ctx, req.Question, req.Sources)
	if err != nil {
		return AskResponse{}, err
	}

	if res.Empty() || res.Context == "" {
		logger.InfoContext(ctx, "nothing retrieved, answering with sentinel")
		return AskResponse{Answer: citation.NoAnswer}, nil
	}

	done := e.metrics.StartStage(metrics.StageDraft)
	draft, err := e.drafter.Draft(ctx, req.Question, res.Context)
	done()
	if err != nil {
		logger.ErrorContext(ctx, "draft stage failed", "error", err)
		return AskResponse{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	logger.DebugContext(ctx, "draft answer", "answer", draft)

	done = e.metrics.StartStage(metrics.StageVerify)
	verified, err := e.verifier.Verify(ctx, req.Question, res.Context, draft)
	done()
	if err != nil {
		logger.ErrorContext(ctx, "verification stage failed", "error", err)
		return AskResponse{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	logger.InfoContext(ctx, "RAG query completed",
		"chunks", len(res.Chunks),
		"draft_length", len(draft),
		"answer_length", len(verified),
	)

	return AskResponse{
		Answer:    verified,
		Context:   res.Context,
		Citations: res.Citations,
	}, nil
}
