package indexer

import (
	"math"
	"sort"
	"unicode/utf8"
)

// TokensPerRune is an approximation for token counting (4 chars per token).
const TokensPerRune = 4.0

// Report summarizes a bulk indexing run.
type Report struct {
	DocsProcessed   int               `json:"docs_processed"`
	DocsUnchanged   int               `json:"docs_unchanged"`
	DocsFailed      int               `json:"docs_failed"`
	ChunksIndexed   int               `json:"chunks_indexed"`
	ChunkTokenStats ChunkTokenStats   `json:"chunk_token_stats"`
	Failures        map[string]string `json:"failures,omitempty"`
}

// ChunkTokenStats contains statistics about estimated token counts of the chunks written.
type ChunkTokenStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

func newReport() *Report {
	return &Report{Failures: make(map[string]string)}
}

// estimateTokens estimates tokens from rune count, with a minimum of 1.
func estimateTokens(text string) int {
	tokenCount := int(math.Round(float64(utf8.RuneCountInString(text)) / TokensPerRune))
	return max(tokenCount, 1)
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) ChunkTokenStats {
	if len(tokenCounts) == 0 {
		return ChunkTokenStats{}
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range sorted {
		sum += count
	}
	mean := float64(sum) / float64(len(sorted))

	p95Index := int(math.Ceil(float64(len(sorted))*0.95)) - 1
	p95Index = max(0, min(p95Index, len(sorted)-1))

	return ChunkTokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100,
		P95:  sorted[p95Index],
	}
}
