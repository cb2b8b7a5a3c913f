package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Kind identifies how a document is loaded.
type Kind string

const (
	KindPDF      Kind = "pdf"
	KindMarkdown Kind = "markdown"
)

// File represents an indexable document found during scanning.
type File struct {
	Root    string // Directory the scan started from
	RelPath string // Relative path from Root with forward slashes (e.g., "papers/vector-db.pdf")
	AbsPath string
	Kind    Kind
}

// KindOf returns the document kind for a path and whether it is indexable.
func KindOf(path string) (Kind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return KindPDF, true
	case ".md", ".markdown":
		return KindMarkdown, true
	default:
		return "", false
	}
}

// Scanner walks directories for PDF and Markdown documents.
type Scanner struct {
	roots []string
}

// NewScanner creates a scanner over the given root paths. A root may also be a single file.
func NewScanner(roots ...string) *Scanner {
	return &Scanner{roots: roots}
}

// Scan returns all indexable files under the scanner's roots, sorted by absolute path.
// Hidden directories (".git", ".obsidian", ...) are skipped.
func (s *Scanner) Scan(ctx context.Context) ([]File, error) {
	var files []File

	for _, root := range s.roots {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		info, err := os.Stat(root)
		if err != nil {
			return files, fmt.Errorf("failed to access %s: %w", root, err)
		}

		if !info.IsDir() {
			kind, ok := KindOf(root)
			if !ok {
				return files, fmt.Errorf("unsupported document type: %s", root)
			}
			abs, err := filepath.Abs(root)
			if err != nil {
				return files, fmt.Errorf("failed to resolve %s: %w", root, err)
			}
			files = append(files, File{
				Root:    filepath.Dir(abs),
				RelPath: filepath.Base(abs),
				AbsPath: abs,
				Kind:    kind,
			})
			continue
		}

		err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return fmt.Errorf("failed to access path %s: %w", path, err)
			}

			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}

			kind, ok := KindOf(path)
			if !ok {
				return nil
			}

			relPath, err := filepath.Rel(root, path)
			if err != nil {
				return fmt.Errorf("failed to compute relative path for %s: %w", path, err)
			}

			abs, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("failed to resolve %s: %w", path, err)
			}

			files = append(files, File{
				Root:    root,
				RelPath: filepath.ToSlash(relPath),
				AbsPath: abs,
				Kind:    kind,
			})
			return nil
		})
		if err != nil {
			return files, fmt.Errorf("failed to scan %s: %w", root, err)
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].AbsPath < files[j].AbsPath })
	return files, nil
}
