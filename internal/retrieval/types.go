package retrieval

// Unknown is used for chunk metadata the index does not carry.
const Unknown = "unknown"

// SnippetLength is the number of characters of chunk content kept in a citation snippet.
const SnippetLength = 120

// Chunk is a unit of retrieved text, in relevance order.
type Chunk struct {
	Content string
	Page    string
	Source  string
}

// CitationRef describes where a citation identifier points to.
type CitationRef struct {
	Page    string `json:"page"`
	Source  string `json:"source"`
	Snippet string `json:"snippet"`
}

// Result is the output of one retrieval call.
// Context and Citations are built together from Chunks and never diverge.
type Result struct {
	Chunks    []Chunk
	Context   string
	Citations map[string]CitationRef
}

// Empty reports whether nothing was retrieved.
func (r Result) Empty() bool {
	return len(r.Chunks) == 0
}
