package handlers

import "net/http"

// RootResponse describes the API.
//
// swagger:model RootResponse
type RootResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// RootHandler serves API information at "/".
type RootHandler struct {
	version string
}

// NewRootHandler creates a new RootHandler.
func NewRootHandler(version string) *RootHandler {
	return &RootHandler{version: version}
}

func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, RootResponse{
		Message: "PDF question answering API",
		Version: h.version,
		Endpoints: map[string]string{
			"qa":        "/qa (POST) - Submit questions about the indexed documents",
			"index_pdf": "/index-pdf (POST) - Upload and index PDF files",
			"health":    "/api/health (GET) - Vector store health",
			"metrics":   "/metrics (GET) - Prometheus metrics",
		},
	})
}
