package rag

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"pdfqa/internal/citation"
	"pdfqa/internal/contextutil"
	"pdfqa/internal/metrics"
)

// Drafter produces the first answer from the question and the context block.
type Drafter struct {
	gen Generator
}

// NewDrafter creates a Drafter.
func NewDrafter(gen Generator) *Drafter {
	return &Drafter{gen: gen}
}

// Draft asks the generator for a cited answer. The output is untrusted.
func (d *Drafter) Draft(ctx context.Context, question, contextBlock string) (string, error) {
	draft, err := d.gen.Complete(ctx, draftSystemPrompt, draftUserPrompt(question, contextBlock))
	if err != nil {
		return "", fmt.Errorf("draft generation: %w", err)
	}
	return strings.TrimSpace(draft), nil
}

// Verifier revises a draft and runs the deterministic guard plus the inner enforcement pass.
type Verifier struct {
	gen      Generator
	enforcer *citation.Enforcer
	metrics  *metrics.Recorder
}

// NewVerifier creates a Verifier. A nil enforcer uses the default sentence splitter.
func NewVerifier(gen Generator, enforcer *citation.Enforcer, m *metrics.Recorder) *Verifier {
	if enforcer == nil {
		enforcer = citation.NewEnforcer()
	}
	return &Verifier{gen: gen, enforcer: enforcer, metrics: m}
}

// Verify returns the verified answer. Sentences citing identifiers outside the context block are
// dropped; when nothing survives the result is exactly the sentinel.
func (v *Verifier) Verify(ctx context.Context, question, contextBlock, draft string) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	raw, err := v.gen.Complete(ctx, verifySystemPrompt, verifyUserPrompt(question, contextBlock, draft))
	if err != nil {
		return "", fmt.Errorf("verification generation: %w", err)
	}
	logger.DebugContext(ctx, "raw verified answer", "answer", raw)

	guarded, dropped := v.enforcer.DropUnknown(strings.TrimSpace(raw), contextBlock)
	v.metrics.AddDropped(dropped)
	if dropped > 0 {
		logger.InfoContext(ctx, "dropped sentences with unknown citations", "dropped", dropped)
	}
	if citation.IsNoAnswer(guarded) {
		return citation.NoAnswer, nil
	}

	res := v.enforcer.Enforce(guarded, contextBlock, citation.StandardPolicy)
	v.metrics.AddInsertions(TierInner, res.Inserted)
	logger.DebugContext(ctx, "inner enforcement", "before", guarded, "after", res.Text, "inserted", res.Inserted)

	return res.Text, nil
}

// Enforcement tiers, used as metric labels.
const (
	TierInner = "inner"
	TierOuter = "outer"
)

// listMarker matches a leading bullet or number that models put in front of list lines.
var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// Expander asks the generator for alternative formulations of a question.
// It implements retrieval.QueryExpander.
type Expander struct {
	gen Generator
}

// NewExpander creates an Expander.
func NewExpander(gen Generator) *Expander {
	return &Expander{gen: gen}
}

// Expand returns up to n non-empty alternative phrasings, one per generated line.
func (x *Expander) Expand(ctx context.Context, question string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	out, err := x.gen.Complete(ctx, expandSystemPrompt, expandUserPrompt(question, n))
	if err != nil {
		return nil, fmt.Errorf("query expansion: %w", err)
	}

	alternatives := make([]string, 0, n)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		line = strings.Trim(line, `"`)
		if line == "" {
			continue
		}
		alternatives = append(alternatives, line)
		if len(alternatives) == n {
			break
		}
	}
	return alternatives, nil
}
