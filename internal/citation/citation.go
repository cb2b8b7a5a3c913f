// Package citation implements the citation token syntax and the deterministic
// enforcement pass that runs over generated answers.
package citation

import (
	"regexp"
	"strconv"
	"strings"
)

// NoAnswer is the exact answer returned when the indexed documents cannot ground a reply.
// It never carries citations.
const NoAnswer = "The provided context does not contain information to answer this question."

// tokenPattern matches a wire-visible citation token such as [C3].
var tokenPattern = regexp.MustCompile(`\[(C[1-9][0-9]*)\]`)

// ID returns the identifier for the n-th (1-based) chunk of a context block.
func ID(n int) string {
	return "C" + strconv.Itoa(n)
}

// Token renders an identifier as a bracketed citation token.
func Token(id string) string {
	return "[" + id + "]"
}

// HasCitation reports whether text contains at least one citation token.
func HasCitation(text string) bool {
	return tokenPattern.MatchString(text)
}

// Identifiers returns the identifiers cited in text, deduplicated, in order of first occurrence.
func Identifiers(text string) []string {
	matches := tokenPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		ids = append(ids, m[1])
	}
	return ids
}

// IsNoAnswer reports whether text is the No-Answer sentinel, ignoring surrounding whitespace.
func IsNoAnswer(text string) bool {
	return strings.TrimSpace(text) == NoAnswer
}

// Neutralize rewrites citation-shaped tokens inside source text as (C<n>) so that
// chunk content can never add identifiers to a context block.
func Neutralize(text string) string {
	return tokenPattern.ReplaceAllString(text, "($1)")
}
