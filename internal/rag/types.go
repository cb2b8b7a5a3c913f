package rag

import "pdfqa/internal/retrieval"

// AskRequest represents a RAG query request.
type AskRequest struct {
	// Question is the user's question to answer.
	Question string `json:"question"`
	// Sources optionally restricts retrieval to the named documents. If empty, searches everything.
	Sources []string `json:"sources,omitempty"`
}

// AskResponse represents the response from a RAG query.
type AskResponse struct {
	// Answer is the verified answer after the inner enforcement pass.
	Answer string `json:"answer"`
	// Context is the context block the answer was generated from.
	Context string `json:"context"`
	// Citations maps citation identifiers to their page, source and snippet.
	Citations map[string]retrieval.CitationRef `json:"citations"`
}
