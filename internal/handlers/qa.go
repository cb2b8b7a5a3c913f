package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"pdfqa/internal/contextutil"
	"pdfqa/internal/service"
)

// DefaultMaxQuestionBytes bounds the /qa request body.
const DefaultMaxQuestionBytes = 64 << 10

// QAHandler handles HTTP requests for question answering.
type QAHandler struct {
	qaService    service.QAService
	maxBodyBytes int64
}

// NewQAHandler creates a new QAHandler.
func NewQAHandler(qaService service.QAService) *QAHandler {
	return &QAHandler{qaService: qaService, maxBodyBytes: DefaultMaxQuestionBytes}
}

// QARequest represents the HTTP request payload for questions.
//
// swagger:model QARequest
type QARequest struct {
	Question string   `json:"question"`
	Sources  []string `json:"sources,omitempty"`
}

// ServeHTTP handles HTTP requests for question answering.
//
// swagger:route POST /qa qa askQuestion
//
// Answer a question from the indexed documents with inline [C#] citations.
// context and citations are null when the documents do not answer the question.
//
// responses:
//
//	'200': QAResponse
//	'400': ErrorResponse
//	'413': ErrorResponse
//	'502': ErrorResponse
//	'503': ErrorResponse
func (h *QAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	var req QARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.WarnContext(ctx, "request body too large", "limit", tooLarge.Limit)
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.qaService.Answer(ctx, service.QARequest{
		Question: req.Question,
		Sources:  req.Sources,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, resp)
}
