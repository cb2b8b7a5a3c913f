package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_qa_service.go -package=mocks pdfqa/internal/service QAService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"pdfqa/internal/citation"
	"pdfqa/internal/contextutil"
	"pdfqa/internal/metrics"
	"pdfqa/internal/rag"
	"pdfqa/internal/retrieval"
)

// MaxQuestionLength bounds the accepted question size in characters.
const MaxQuestionLength = 4000

// QARequest represents a question in the domain layer.
type QARequest struct {
	Question string   `json:"question" validate:"required,max=4000"`
	Sources  []string `json:"sources" validate:"omitempty,max=20,dive,required"`
}

// QAResponse is the final answer payload.
// Context and Citations are nil whenever Answer is the No-Answer sentinel.
type QAResponse struct {
	Answer    string                           `json:"answer"`
	Context   *string                          `json:"context"`
	Citations map[string]retrieval.CitationRef `json:"citations"`
}

// QAService answers questions about the indexed documents.
type QAService interface {
	// Answer validates the request, runs the pipeline and applies the outer citation pass.
	Answer(ctx context.Context, req QARequest) (QAResponse, error)
}

// qaService implements QAService.
type qaService struct {
	engine   rag.Engine
	enforcer *citation.Enforcer
	validate *validator.Validate
	metrics  *metrics.Recorder
	logger   *slog.Logger
}

// NewQAService creates a new QAService. A nil enforcer uses the default sentence splitter.
func NewQAService(engine rag.Engine, enforcer *citation.Enforcer, m *metrics.Recorder) QAService {
	if enforcer == nil {
		enforcer = citation.NewEnforcer()
	}
	return &qaService{
		engine:   engine,
		enforcer: enforcer,
		validate: newValidator(),
		metrics:  m,
		logger:   slog.Default(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names in validation errors
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

func (s *qaService) getLogger(ctx context.Context) *slog.Logger {
	if contextutil.HasLogger(ctx) {
		return contextutil.LoggerFromContext(ctx)
	}
	return s.logger
}

// Answer processes a question.
func (s *qaService) Answer(ctx context.Context, req QARequest) (QAResponse, error) {
	logger := s.getLogger(ctx)

	req.Question = strings.TrimSpace(req.Question)
	if err := s.validate.Struct(req); err != nil {
		logger.WarnContext(ctx, "invalid question request", "error", err)
		return QAResponse{}, toValidationError(err)
	}

	resp, err := s.engine.Ask(ctx, rag.AskRequest{Question: req.Question, Sources: req.Sources})
	if err != nil {
		return QAResponse{}, classify(err)
	}

	done := s.metrics.StartStage(metrics.StageEnforce)
	outer := s.enforcer.EnforceWithFallback(resp.Answer, resp.Context)
	done()
	s.metrics.AddInsertions(rag.TierOuter, outer.Inserted)
	if outer.FallbackUsed {
		s.metrics.IncFallback()
		logger.InfoContext(ctx, "forced citation fallback applied", "inserted", outer.Inserted)
	}
	logger.DebugContext(ctx, "outer enforcement", "before", resp.Answer, "after", outer.Text)

	if citation.IsNoAnswer(outer.Text) {
		s.metrics.IncAnswer(metrics.AnswerNoAnswer)
		logger.InfoContext(ctx, "question could not be answered from the documents")
		return QAResponse{Answer: citation.NoAnswer}, nil
	}

	s.metrics.IncAnswer(metrics.AnswerGrounded)
	out := QAResponse{
		Answer:    outer.Text,
		Citations: resp.Citations,
	}
	if resp.Context != "" {
		contextBlock := resp.Context
		out.Context = &contextBlock
	}

	logger.InfoContext(ctx, "question answered", "answer_length", len(out.Answer), "citations", len(out.Citations))
	return out, nil
}

// classify maps pipeline failures onto the service error taxonomy.
func classify(err error) error {
	switch {
	case errors.Is(err, retrieval.ErrSearchFailed):
		return fmt.Errorf("%w: %w", ErrRetrieval, err)
	case errors.Is(err, rag.ErrGeneration):
		return fmt.Errorf("%w: %w", ErrGeneration, err)
	default:
		return WrapError(err, "failed to answer question")
	}
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Field: "request", Message: err.Error()}
	}

	fe := verrs[0]
	field := fe.Field()
	switch {
	case field == "question" && fe.Tag() == "required":
		return &ValidationError{Field: field, Message: "must be a non-empty string"}
	case fe.Tag() == "max":
		return &ValidationError{Field: field, Message: "exceeds maximum length of " + fe.Param()}
	default:
		return &ValidationError{Field: field, Message: "failed " + fe.Tag() + " validation"}
	}
}
