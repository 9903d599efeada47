package main

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikirag/docstore"
)

type fakeLLM struct {
	prompt   string
	response string
}

func (l *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	l.prompt = prompt
	return l.response, nil
}

func Test_BuildPrompt(t *testing.T) {
	hits := []docstore.Hit{
		{Score: 0.91234, Payload: docstore.Payload{
			DocName: "Dog",
			Snippet: "The dog is a domesticated descendant of the wolf.",
			URL:     "https://en.wikipedia.org/wiki/Dog",
		}},
		{Score: 0.5, Payload: docstore.Payload{
			DocName: "notes.txt",
			Snippet: "My notes about dogs.",
			Path:    "/data/user_docs/notes.txt",
		}},
	}

	prompt := BuildPrompt("when were dogs domesticated?", hits)

	assert.Contains(t, prompt, sysPrompt)
	assert.Contains(t, prompt, "[1] Dog (score=0.912)\nThe dog is a domesticated descendant of the wolf.\nSource: https://en.wikipedia.org/wiki/Dog")
	assert.Contains(t, prompt, "[2] notes.txt (score=0.500)\nMy notes about dogs.\nSource: /data/user_docs/notes.txt")
	assert.Contains(t, prompt, "### Task\nAnswer using only the context above.")
	assert.Contains(t, prompt, "### Query\nwhen were dogs domesticated?\n")
	assert.True(t, strings.HasSuffix(prompt, "### Answer\n"))
}

func Test_BuildPrompt_NoHits(t *testing.T) {
	prompt := BuildPrompt("anything", nil)

	// An empty context block is fine; the sections are still present.
	assert.Contains(t, prompt, "### Context\n\n")
	assert.Contains(t, prompt, "### Query\nanything\n")
}

func Test_Answer(t *testing.T) {
	llm := &fakeLLM{response: "Dogs were domesticated over 15,000 years ago [source: Dog]."}
	gen := NewAnswerGenerator(llm)

	answer, err := gen.Answer(context.Background(), "when were dogs domesticated?", []docstore.Hit{
		{Score: 0.9, Payload: docstore.Payload{DocName: "Dog", Snippet: "…", URL: "u"}},
	})
	require.NoError(t, err)

	assert.Equal(t, llm.response, answer)
	assert.Contains(t, llm.prompt, "### Query\nwhen were dogs domesticated?")
}
