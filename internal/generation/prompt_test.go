package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
)

func TestBuildContext(t *testing.T) {
	results := []domain.SearchResult{
		{Chunk: domain.Chunk{Text: "Cats sleep a lot.", Source: "cats.pdf", Page: 2}, Score: 0.9},
		{Chunk: domain.Chunk{Text: "Dogs\nbark.", Source: "dogs.txt", Page: 1}, Score: 0.4},
	}
	history := []domain.Turn{{Question: "first?", Answer: "one", Seq: 1}}

	got := BuildContext(results, history)
	assert.Equal(t, "Context:\n"+
		"[cats.pdf p.2] Cats sleep a lot.\n"+
		"[dogs.txt p.1] Dogs bark.\n"+
		"\n"+
		"Conversation so far:\n"+
		"Q: first?\nA: one\n", got)
}

func TestBuildContext_NoHistory(t *testing.T) {
	got := BuildContext(nil, nil)
	assert.Equal(t, "Context:\n", got)
}

func TestParsePassages(t *testing.T) {
	results := []domain.SearchResult{
		{Chunk: domain.Chunk{Text: "Alpha beta.", Source: "dir/a b.pdf", Page: 12}},
		{Chunk: domain.Chunk{Text: "Gamma.", Source: "c.md", Page: 1}},
	}
	history := []domain.Turn{{Question: "[x p.1] not a passage", Answer: "no", Seq: 1}}

	got := ParsePassages(BuildContext(results, history))
	require.Len(t, got, 2)
	assert.Equal(t, Passage{Source: "dir/a b.pdf", Page: 12, Text: "Alpha beta."}, got[0])
	assert.Equal(t, "[c.md p.1]", got[1].Tag())
}
