package extractive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
	"ragchat/internal/generation"
)

func promptFor(chunks ...domain.Chunk) string {
	results := make([]domain.SearchResult, len(chunks))
	for i, c := range chunks {
		results[i] = domain.SearchResult{Chunk: c}
	}
	return generation.BuildContext(results, nil)
}

func TestGenerate_PicksMatchingSentences(t *testing.T) {
	g := NewGenerator(1)
	ctx := promptFor(
		domain.Chunk{Text: "Paris is the capital of France. It has many museums.", Source: "geo.pdf", Page: 3},
		domain.Chunk{Text: "Berlin is in Germany.", Source: "geo.pdf", Page: 4},
	)

	out, err := g.Generate(context.Background(), ctx, "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital of France. [geo.pdf p.3]", out.Answer)
	assert.Nil(t, out.Usage)
}

func TestGenerate_ReadingOrder(t *testing.T) {
	g := NewGenerator(2)
	ctx := promptFor(
		domain.Chunk{Text: "Cats purr. Dogs bark loudly at cats.", Source: "a.txt", Page: 1},
	)

	out, err := g.Generate(context.Background(), ctx, "cats dogs")
	require.NoError(t, err)
	assert.Equal(t, "Cats purr. [a.txt p.1] Dogs bark loudly at cats. [a.txt p.1]", out.Answer)
}

func TestGenerate_NoMatch(t *testing.T) {
	g := NewGenerator(0)
	out, err := g.Generate(context.Background(), promptFor(domain.Chunk{Text: "Nothing relevant.", Source: "x", Page: 1}), "quantum chromodynamics")
	require.NoError(t, err)
	assert.Equal(t, NoAnswer, out.Answer)

	out, err = g.Generate(context.Background(), generation.BuildContext(nil, nil), "anything")
	require.NoError(t, err)
	assert.Equal(t, NoAnswer, out.Answer)
}

func TestGenerate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGenerator(0).Generate(ctx, "", "q")
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCondense(t *testing.T) {
	g := NewGenerator(0)

	q, err := g.Condense(context.Background(), nil, "what about it?")
	require.NoError(t, err)
	assert.Equal(t, "what about it?", q)

	history := []domain.Turn{{Question: "Tell me about the Eiffel tower", Answer: "It is tall.", Seq: 1}}
	q, err = g.Condense(context.Background(), history, "how tall is it?")
	require.NoError(t, err)
	assert.Equal(t, "tell me eiffel tower how tall is it?", q)
}
