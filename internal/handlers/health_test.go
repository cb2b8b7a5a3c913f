package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"pdfqa/internal/vectorstore"
)

type fakeCollections struct {
	info vectorstore.CollectionInfo
	err  error
	got  string
}

func (f *fakeCollections) DescribeCollection(_ context.Context, collection string) (vectorstore.CollectionInfo, error) {
	f.got = collection
	return f.info, f.err
}

type fakeDocuments struct {
	n   int
	err error
}

func (f *fakeDocuments) Count(context.Context) (int, error) {
	return f.n, f.err
}

func TestHealthHandler_ServeHTTP(t *testing.T) {
	green := vectorstore.CollectionInfo{Name: "pdf_chunks", VectorSize: 768, Distance: "Cosine", Points: 120, Status: "Green"}
	resized := green
	resized.VectorSize = 1024
	emptied := green
	emptied.Points = 0

	tests := []struct {
		name        string
		collections *fakeCollections
		documents   *fakeDocuments
		wantStatus  int
		wantState   string
		wantChecks  map[string]string
		wantIssues  []string
		wantIndex   IndexHealth
	}{
		{
			name:        "healthy",
			collections: &fakeCollections{info: green},
			documents:   &fakeDocuments{n: 3},
			wantStatus:  http.StatusOK,
			wantState:   HealthHealthy,
			wantChecks:  map[string]string{"vector_store": "ok", "vector_size": "ok", "document_store": "ok", "index": "ok"},
			wantIndex: IndexHealth{
				Collection: "pdf_chunks", CollectionStatus: "Green",
				VectorSize: 768, ExpectedVectorSize: 768, Points: 120, Documents: 3,
			},
		},
		{
			name:        "nothing indexed yet",
			collections: &fakeCollections{info: emptied},
			documents:   &fakeDocuments{n: 0},
			wantStatus:  http.StatusOK,
			wantState:   HealthHealthy,
			wantChecks:  map[string]string{"vector_store": "ok", "vector_size": "ok", "document_store": "ok", "index": "empty"},
			wantIndex: IndexHealth{
				Collection: "pdf_chunks", CollectionStatus: "Green",
				VectorSize: 768, ExpectedVectorSize: 768,
			},
		},
		{
			name:        "documents without vectors",
			collections: &fakeCollections{info: emptied},
			documents:   &fakeDocuments{n: 2},
			wantStatus:  http.StatusOK,
			wantState:   HealthDegraded,
			wantChecks:  map[string]string{"vector_store": "ok", "vector_size": "ok", "document_store": "ok", "index": "out_of_sync"},
			wantIssues:  []string{"index_out_of_sync"},
			wantIndex: IndexHealth{
				Collection: "pdf_chunks", CollectionStatus: "Green",
				VectorSize: 768, ExpectedVectorSize: 768, Documents: 2,
			},
		},
		{
			name:        "vector size mismatch",
			collections: &fakeCollections{info: resized},
			documents:   &fakeDocuments{n: 3},
			wantStatus:  http.StatusServiceUnavailable,
			wantState:   HealthUnhealthy,
			wantChecks:  map[string]string{"vector_store": "ok", "vector_size": "mismatch", "document_store": "ok"},
			wantIssues:  []string{"vector_size_mismatch"},
			wantIndex: IndexHealth{
				Collection: "pdf_chunks", CollectionStatus: "Green",
				VectorSize: 1024, ExpectedVectorSize: 768, Points: 120, Documents: 3,
			},
		},
		{
			name:        "vector store unavailable",
			collections: &fakeCollections{err: errors.New("connection refused")},
			documents:   &fakeDocuments{n: 3},
			wantStatus:  http.StatusServiceUnavailable,
			wantState:   HealthUnhealthy,
			wantChecks:  map[string]string{"vector_store": "error", "document_store": "ok"},
			wantIssues:  []string{"vector_store_unavailable"},
			wantIndex:   IndexHealth{Collection: "pdf_chunks", ExpectedVectorSize: 768, Documents: 3},
		},
		{
			name:        "document registry unavailable",
			collections: &fakeCollections{info: green},
			documents:   &fakeDocuments{err: errors.New("database is locked")},
			wantStatus:  http.StatusServiceUnavailable,
			wantState:   HealthUnhealthy,
			wantChecks:  map[string]string{"vector_store": "ok", "vector_size": "ok", "document_store": "error"},
			wantIssues:  []string{"document_store_unavailable"},
			wantIndex: IndexHealth{
				Collection: "pdf_chunks", CollectionStatus: "Green",
				VectorSize: 768, ExpectedVectorSize: 768, Points: 120,
			},
		},
		{
			name:        "everything down",
			collections: &fakeCollections{err: errors.New("connection refused")},
			documents:   &fakeDocuments{err: errors.New("database is closed")},
			wantStatus:  http.StatusServiceUnavailable,
			wantState:   HealthUnhealthy,
			wantChecks:  map[string]string{"vector_store": "error", "document_store": "error"},
			wantIssues:  []string{"vector_store_unavailable", "document_store_unavailable"},
			wantIndex:   IndexHealth{Collection: "pdf_chunks", ExpectedVectorSize: 768},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.collections, "pdf_chunks", 768, tt.documents)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("ServeHTTP() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.collections.got != "pdf_chunks" {
				t.Errorf("DescribeCollection() collection = %q, want pdf_chunks", tt.collections.got)
			}

			var resp HealthResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Status != tt.wantState {
				t.Errorf("status = %q, want %q", resp.Status, tt.wantState)
			}
			if !reflect.DeepEqual(resp.Checks, tt.wantChecks) {
				t.Errorf("checks = %v, want %v", resp.Checks, tt.wantChecks)
			}
			if !reflect.DeepEqual(resp.Issues, tt.wantIssues) {
				t.Errorf("issues = %v, want %v", resp.Issues, tt.wantIssues)
			}
			if resp.Index != tt.wantIndex {
				t.Errorf("index = %+v, want %+v", resp.Index, tt.wantIndex)
			}
			if resp.Timestamp == "" {
				t.Error("timestamp should be set")
			}
		})
	}
}

func TestHealthHandler_MethodNotAllowed(t *testing.T) {
	collections := &fakeCollections{}
	handler := NewHealthHandler(collections, "pdf_chunks", 768, &fakeDocuments{})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/health", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("ServeHTTP() status = %v, want %v", w.Code, http.StatusMethodNotAllowed)
	}
	if collections.got != "" {
		t.Error("POST should not reach the vector store")
	}
}

func TestRootHandler_ServeHTTP(t *testing.T) {
	w := httptest.NewRecorder()
	NewRootHandler("0.1.0").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("ServeHTTP() status = %v, want 200", w.Code)
	}
	var resp RootResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Version != "0.1.0" || resp.Endpoints["qa"] == "" || resp.Endpoints["index_pdf"] == "" {
		t.Errorf("response = %+v", resp)
	}
}
