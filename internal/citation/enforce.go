package citation

import (
	"regexp"
	"strings"
	"unicode"
)

// assertiveVerbs marks a sentence as a factual claim regardless of its length.
var assertiveVerbs = regexp.MustCompile(`(?i)\b(is|are|has|uses|supports|provides|includes|contains|requires)\b`)

// Policy decides which uncited sentences count as factual claims.
type Policy struct {
	// Name labels the policy in logs and metrics.
	Name string
	// TokenThreshold marks a sentence as factual when it has more whitespace-separated tokens than this.
	TokenThreshold int
	// DetectSignals also marks sentences containing a digit or an assertive verb as factual.
	DetectSignals bool
}

var (
	// StandardPolicy is applied after verification and again at the service boundary.
	StandardPolicy = Policy{Name: "standard", TokenThreshold: 5, DetectSignals: true}
	// ForcedPolicy is the fallback used when an answer still carries no citation at all.
	ForcedPolicy = Policy{Name: "forced", TokenThreshold: 3}
)

func (p Policy) factual(sentence string) bool {
	if len(strings.Fields(sentence)) > p.TokenThreshold {
		return true
	}
	if !p.DetectSignals {
		return false
	}
	return strings.IndexFunc(sentence, unicode.IsDigit) >= 0 || assertiveVerbs.MatchString(sentence)
}

// Result is the outcome of an enforcement pass.
type Result struct {
	// Text is the rewritten answer.
	Text string
	// Inserted counts the citation tokens appended by the pass.
	Inserted int
	// FallbackUsed is set when the forced policy had to run.
	FallbackUsed bool
}

// Enforcer appends citations to uncited factual sentences. It is stateless and safe for concurrent use.
type Enforcer struct {
	split Splitter
}

// Option configures an Enforcer.
type Option func(*Enforcer)

// WithSplitter replaces the sentence boundary function.
func WithSplitter(s Splitter) Option {
	return func(e *Enforcer) {
		if s != nil {
			e.split = s
		}
	}
}

// NewEnforcer creates an Enforcer using SplitSentences unless overridden.
func NewEnforcer(opts ...Option) *Enforcer {
	e := &Enforcer{split: SplitSentences}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enforce runs a single pass over answer using the identifiers found in contextBlock.
// The sentinel and answers with no identifiers to cite against are returned unchanged.
// Sentences that already cite something are kept verbatim; validating the cited identifiers
// is DropUnknown's job.
func (e *Enforcer) Enforce(answer, contextBlock string, p Policy) Result {
	if IsNoAnswer(answer) {
		return Result{Text: answer}
	}

	ids := Identifiers(contextBlock)
	if len(ids) == 0 {
		return Result{Text: answer}
	}
	token := Token(ids[0])

	sentences := e.split(answer)
	out := make([]string, 0, len(sentences))
	var inserted int
	for _, s := range sentences {
		if HasCitation(s) || !p.factual(s) {
			out = append(out, s)
			continue
		}
		out = append(out, attach(s, token))
		inserted++
	}

	return Result{Text: strings.Join(out, " "), Inserted: inserted}
}

// EnforceWithFallback runs the standard pass and, when the answer still carries no citation
// while the context block has identifiers, a forced pass that cites every sentence longer
// than three tokens.
func (e *Enforcer) EnforceWithFallback(answer, contextBlock string) Result {
	res := e.Enforce(answer, contextBlock, StandardPolicy)
	if IsNoAnswer(res.Text) || HasCitation(res.Text) || len(Identifiers(contextBlock)) == 0 {
		return res
	}

	forced := e.Enforce(res.Text, contextBlock, ForcedPolicy)
	forced.Inserted += res.Inserted
	forced.FallbackUsed = true
	return forced
}

// DropUnknown removes sentences citing an identifier that contextBlock does not define.
// It returns the sentinel when nothing survives, along with the number of dropped sentences.
func (e *Enforcer) DropUnknown(answer, contextBlock string) (string, int) {
	if IsNoAnswer(answer) {
		return answer, 0
	}

	vocabulary := make(map[string]struct{})
	for _, id := range Identifiers(contextBlock) {
		vocabulary[id] = struct{}{}
	}

	sentences := e.split(answer)
	kept := make([]string, 0, len(sentences))
	for _, s := range sentences {
		if citesOutside(s, vocabulary) {
			continue
		}
		kept = append(kept, s)
	}

	dropped := len(sentences) - len(kept)
	if len(kept) == 0 {
		return NoAnswer, dropped
	}
	return strings.Join(kept, " "), dropped
}

func citesOutside(sentence string, vocabulary map[string]struct{}) bool {
	for _, id := range Identifiers(sentence) {
		if _, ok := vocabulary[id]; !ok {
			return true
		}
	}
	return false
}

// attach strips the trailing terminators of a sentence and appends the citation token.
// The whole terminator run is stripped so a re-split never sees a bare "..." boundary.
func attach(sentence, token string) string {
	body := strings.TrimRightFunc(strings.TrimRight(sentence, ".!?"), unicode.IsSpace)
	return body + " " + token + "."
}
