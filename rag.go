package main

import (
	"context"
	"fmt"
	"strings"

	"wikirag/docstore"
)

const sysPrompt = "You are a concise assistant. If sources are provided, cite the filenames inline like [source: <doc_name>]. Be accurate and brief."

// TextGenerator runs a prompt through the generation model.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// AnswerGenerator builds a grounded prompt from retrieval hits and asks
// the generation model for an answer. No retry, no validation of the
// citations it asked for.
type AnswerGenerator struct {
	llm TextGenerator
}

func NewAnswerGenerator(llm TextGenerator) *AnswerGenerator {
	return &AnswerGenerator{llm: llm}
}

// Answer returns the model's response for the query, grounded in hits.
// Zero hits produce an empty context block, not an error.
func (g *AnswerGenerator) Answer(ctx context.Context, query string, hits []docstore.Hit) (string, error) {
	return g.llm.Generate(ctx, BuildPrompt(query, hits))
}

// BuildPrompt renders the system instruction, an enumerated context
// block, the task instruction, the query and an answer marker.
func BuildPrompt(query string, hits []docstore.Hit) string {
	ctxLines := make([]string, 0, len(hits))
	for i, h := range hits {
		name := h.Payload.DocName
		if name == "" {
			name = "unknown"
		}
		src := h.Payload.URL
		if src == "" {
			src = h.Payload.Path
		}
		ctxLines = append(ctxLines, fmt.Sprintf("[%d] %s (score=%.3f)\n%s\nSource: %s",
			i+1, name, h.Score, h.Payload.Snippet, src))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", sysPrompt)
	fmt.Fprintf(&b, "### Context\n%s\n\n", strings.Join(ctxLines, "\n\n"))
	b.WriteString("### Task\nAnswer using only the context above. Cite the source as [source: <doc_name>].\n")
	fmt.Fprintf(&b, "### Query\n%s\n", query)
	b.WriteString("### Answer\n")

	return b.String()
}
