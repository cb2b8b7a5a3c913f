package citation

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Splitter breaks an answer into sentences. Implementations must return trimmed,
// non-empty fragments in their original order.
type Splitter func(text string) []string

// SplitSentences cuts text after '.', '!' or '?' when the terminator is followed by whitespace.
// Abbreviations and decimals followed by a space are split too; swap in a stricter Splitter
// through WithSplitter when that matters.
func SplitSentences(text string) []string {
	var sentences []string
	start := 0
	for i, r := range text {
		if !isTerminator(r) {
			continue
		}
		end := i + utf8.RuneLen(r)
		if end >= len(text) {
			break
		}
		next, _ := utf8.DecodeRuneInString(text[end:])
		if !unicode.IsSpace(next) {
			continue
		}
		sentences = appendSentence(sentences, text[start:end])
		start = end
	}
	return appendSentence(sentences, text[start:])
}

func appendSentence(sentences []string, fragment string) []string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return sentences
	}
	return append(sentences, fragment)
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
