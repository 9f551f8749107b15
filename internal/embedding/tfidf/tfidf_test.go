package tfidf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/index"
)

var corpus = []string{
	"Cats are small domesticated carnivores.",
	"Dogs are loyal companions and good guards.",
	"Vector indexes answer nearest neighbour queries.",
}

func TestEmbedder_NotPrepared(t *testing.T) {
	e := NewEmbedder()
	_, err := e.Embed(context.Background(), "cats")
	assert.Error(t, err)
	assert.Equal(t, 0, e.Dimension())
}

func TestEmbedder_Prepare(t *testing.T) {
	e := NewEmbedder()
	assert.Error(t, e.Prepare(nil))
	assert.Error(t, e.Prepare([]string{"the and of"}))

	require.NoError(t, e.Prepare(corpus))
	assert.Positive(t, e.Dimension())
	assert.Equal(t, "tfidf", e.Name())
}

func TestEmbedder_EmbedRanksRelevantText(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare(corpus))
	ctx := context.Background()

	q, err := e.Embed(ctx, "which animals are loyal guards?")
	require.NoError(t, err)
	require.Len(t, q, e.Dimension())

	var best int
	bestScore := -1.0
	for i, doc := range corpus {
		v, err := e.Embed(ctx, doc)
		require.NoError(t, err)
		if s := index.CosineSimilarity(q, v); s > bestScore {
			best, bestScore = i, s
		}
	}
	assert.Equal(t, 1, best)
}

func TestEmbedder_UnknownTextIsZero(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare(corpus))
	v, err := e.Embed(context.Background(), "zzz qqq")
	require.NoError(t, err)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestEmbedder_DeterministicAcrossInstances(t *testing.T) {
	a, b := NewEmbedder(), NewEmbedder()
	require.NoError(t, a.Prepare(corpus))
	require.NoError(t, b.Prepare(corpus))

	va, err := a.Embed(context.Background(), corpus[2])
	require.NoError(t, err)
	vb, err := b.Embed(context.Background(), corpus[2])
	require.NoError(t, err)
	assert.Equal(t, va, vb)
}
