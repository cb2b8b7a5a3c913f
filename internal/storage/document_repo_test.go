package storage

import (
	"context"
	"database/sql"
	"testing"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	tmpDir := t.TempDir()
	db, err := New(tmpDir + "/test.db")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestDocumentRepo_GetBySource(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDocumentRepo(db)
	ctx := context.Background()

	doc := &DocumentRecord{Source: "paper.pdf", Hash: "abc123", PageCount: 4}
	if err := repo.Upsert(ctx, doc); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	tests := []struct {
		name    string
		source  string
		wantErr error
	}{
		{name: "existing document", source: "paper.pdf"},
		{name: "missing document", source: "other.pdf", wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetBySource(ctx, tt.source)
			if err != tt.wantErr {
				t.Fatalf("GetBySource() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if got != nil {
					t.Errorf("GetBySource() = %v, want nil", got)
				}
				return
			}
			if got.ID != doc.ID {
				t.Errorf("GetBySource() ID = %q, want %q", got.ID, doc.ID)
			}
			if got.Hash != "abc123" || got.PageCount != 4 {
				t.Errorf("GetBySource() = %+v, want hash abc123 and 4 pages", got)
			}
			if got.IndexedAt.IsZero() {
				t.Error("GetBySource() IndexedAt should be set")
			}
		})
	}
}

func TestDocumentRepo_Upsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDocumentRepo(db)
	ctx := context.Background()

	first := &DocumentRecord{Source: "paper.pdf", Hash: "v1", PageCount: 2}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if first.ID == "" {
		t.Fatal("Upsert() should assign an ID")
	}

	second := &DocumentRecord{Source: "paper.pdf", Hash: "v2", PageCount: 3}
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("Upsert() update error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("Upsert() ID = %q, want preserved %q", second.ID, first.ID)
	}

	got, err := repo.GetBySource(ctx, "paper.pdf")
	if err != nil {
		t.Fatalf("GetBySource() error = %v", err)
	}
	if got.Hash != "v2" || got.PageCount != 3 {
		t.Errorf("GetBySource() = %+v, want updated hash and page count", got)
	}
}

func TestDocumentRepo_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDocumentRepo(db)
	ctx := context.Background()

	docs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("List() len = %d, want 0", len(docs))
	}

	for _, src := range []string{"b.md", "a.pdf"} {
		if err := repo.Upsert(ctx, &DocumentRecord{Source: src, Hash: "h"}); err != nil {
			t.Fatalf("Upsert(%s) error = %v", src, err)
		}
	}

	docs, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("List() len = %d, want 2", len(docs))
	}
	if docs[0].Source != "a.pdf" || docs[1].Source != "b.md" {
		t.Errorf("List() order = [%s %s], want [a.pdf b.md]", docs[0].Source, docs[1].Source)
	}
}

func TestDocumentRepo_Count(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDocumentRepo(db)
	ctx := context.Background()

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Count() on empty registry = %d, want 0", n)
	}

	for _, source := range []string{"a.pdf", "b.pdf"} {
		if err := repo.Upsert(ctx, &DocumentRecord{Source: source, Hash: "h", PageCount: 1}); err != nil {
			t.Fatalf("Upsert(%s) error = %v", source, err)
		}
	}
	// Re-indexing a source replaces its row.
	if err := repo.Upsert(ctx, &DocumentRecord{Source: "a.pdf", Hash: "h2", PageCount: 2}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if n, err = repo.Count(ctx); err != nil || n != 2 {
		t.Errorf("Count() = %d, %v, want 2, nil", n, err)
	}

	_ = db.Close()
	if _, err := repo.Count(ctx); err == nil {
		t.Error("Count() on closed database expected error")
	}
}
