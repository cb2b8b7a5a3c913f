package rag

import (
	"fmt"

	"pdfqa/internal/citation"
)

var draftSystemPrompt = `You answer questions about a set of documents using only the numbered context passages you are given.

Rules:
- Use only facts stated in the context. Do not use outside knowledge.
- End every sentence that states a fact with the citation token of the passage it comes from, for example [C1] or [C2][C3].
- Only use citation tokens that appear in the context.
- If the context does not answer the question, reply with exactly this sentence and nothing else:
` + citation.NoAnswer

var verifySystemPrompt = `You review a draft answer against the numbered context passages it was written from.

For every sentence of the draft:
- Remove it if it states a fact but carries no citation token.
- Remove it if it cites a token that does not appear in the context, or if the cited passage does not support it.
- Keep general, non-factual sentences as they are.
- Keep supported, cited sentences as they are.

Return only the revised answer, with no commentary.
If every sentence is removed, reply with exactly this sentence and nothing else:
` + citation.NoAnswer

var expandSystemPrompt = `You rewrite search questions. Given a question, produce alternative phrasings that could match relevant passages in technical documents.
Return one phrasing per line, with no numbering and no commentary.`

func draftUserPrompt(question, contextBlock string) string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextBlock, question)
}

func verifyUserPrompt(question, contextBlock, draft string) string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s\n\nDraft answer:\n%s", contextBlock, question, draft)
}

func expandUserPrompt(question string, n int) string {
	return fmt.Sprintf("Question: %s\n\nWrite %d alternative phrasings.", question, n)
}
