package retrieval

import (
	"fmt"
	"strings"

	"pdfqa/internal/citation"
)

// Serialize renders chunks into a context block tagged with positional citation
// identifiers and the matching citation map. Missing page or source become "unknown".
// Citation-shaped tokens inside chunk content are neutralized so the block defines
// exactly one token per chunk.
func Serialize(chunks []Chunk) (string, map[string]CitationRef) {
	if len(chunks) == 0 {
		return "", map[string]CitationRef{}
	}

	blocks := make([]string, 0, len(chunks))
	refs := make(map[string]CitationRef, len(chunks))
	for i, c := range chunks {
		id := citation.ID(i + 1)
		page := orUnknown(c.Page)
		content := citation.Neutralize(c.Content)

		blocks = append(blocks, fmt.Sprintf("%s (Page %s)\n%s", citation.Token(id), page, content))
		refs[id] = CitationRef{
			Page:    page,
			Source:  orUnknown(c.Source),
			Snippet: snippet(c.Content),
		}
	}

	return strings.Join(blocks, "\n\n"), refs
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return Unknown
	}
	return s
}

// snippet keeps the first SnippetLength characters and always appends the ellipsis marker.
func snippet(content string) string {
	r := []rune(content)
	if len(r) > SnippetLength {
		r = r[:SnippetLength]
	}
	return string(r) + "..."
}
