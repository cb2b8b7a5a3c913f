package indexer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"pdfqa/internal/corpus"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither PDF nor Markdown.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrNoText is returned when a document yields no extractable text.
	ErrNoText = errors.New("document contains no extractable text")
)

// LoadPDF extracts the plain text of every page. Pages without text are skipped;
// page numbers stay those of the original document.
func LoadPDF(r io.ReaderAt, size int64) (pages []Page, err error) {
	// The PDF parser panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("failed to parse PDF: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}

	pageCount := reader.NumPage()
	pages = make([]Page, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}

		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: content})
	}

	return pages, nil
}

// MarkdownLoader extracts readable text from Markdown using the goldmark AST.
type MarkdownLoader struct {
	parser goldmark.Markdown
}

// NewMarkdownLoader creates a new Markdown loader.
func NewMarkdownLoader() *MarkdownLoader {
	return &MarkdownLoader{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// Load returns the document as a single page numbered 0.
// Block elements are separated by blank lines so the splitter can break on them.
func (l *MarkdownLoader) Load(content []byte) []Page {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil
	}

	doc := l.parser.Parser().Parse(text.NewReader(content))

	var blocks []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n.(type) {
		case *ast.Heading, *ast.Paragraph, *ast.TextBlock:
			if s := extractTextFromNode(n, content); s != "" {
				blocks = append(blocks, s)
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if s := extractLines(n, content); s != "" {
				blocks = append(blocks, s)
			}
			return ast.WalkSkipChildren, nil
		case *east.TableHeader, *east.TableRow:
			if s := extractTableRowText(n, content); s != "" {
				blocks = append(blocks, s)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	if len(blocks) == 0 {
		return nil
	}
	return []Page{{Number: 0, Text: strings.Join(blocks, "\n\n")}}
}

// extractTextFromNode extracts inline text content from a node and its children.
func extractTextFromNode(n ast.Node, content []byte) string {
	var textBuilder strings.Builder

	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch v := node.(type) {
		case *ast.Text:
			textBuilder.Write(v.Segment.Value(content))
			if v.SoftLineBreak() || v.HardLineBreak() {
				textBuilder.WriteByte(' ')
			}
		case *ast.String:
			textBuilder.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(textBuilder.String())
}

// extractLines returns the raw lines of a code block.
func extractLines(n ast.Node, content []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(content))
	}
	return strings.TrimSpace(b.String())
}

// extractTableRowText extracts text from a table row, formatting cells with pipe separators.
func extractTableRowText(row ast.Node, content []byte) string {
	var rowBuilder strings.Builder
	cellCount := 0

	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if _, ok := cell.(*east.TableCell); !ok {
			continue
		}
		if cellCount > 0 {
			rowBuilder.WriteString(" | ")
		}
		rowBuilder.WriteString(extractTextFromNode(cell, content))
		cellCount++
	}

	return strings.TrimSpace(rowBuilder.String())
}

// loadPages dispatches on the file extension.
func (p *Pipeline) loadPages(path string, content []byte) ([]Page, error) {
	kind, ok := corpus.KindOf(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	switch kind {
	case corpus.KindPDF:
		return LoadPDF(bytes.NewReader(content), int64(len(content)))
	default:
		return p.markdown.Load(content), nil
	}
}
