package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"quick", "fox", "isn't", "2024"}, Tokens("The quick Fox isn't in 2024!"))
	assert.Empty(t, Tokens("the and of"))
	assert.Empty(t, Tokens(""))
}

func TestSentences(t *testing.T) {
	assert.Equal(t, []string{"One.", "Two!", "Three?"}, Sentences("One. Two! Three?"))
	assert.Equal(t, []string{"Done.", "no terminator here"}, Sentences("Done. no terminator here"))
	assert.Equal(t, []string{"just text"}, Sentences("  just text "))
	assert.Nil(t, Sentences("   "))
}

func TestOchiai(t *testing.T) {
	q := TokenSet("vector index search")
	assert.InDelta(t, 1.0, Ochiai(q, "search the vector index"), 1e-9)
	assert.Equal(t, 0.0, Ochiai(q, "unrelated words"))
	assert.Equal(t, 0.0, Ochiai(map[string]struct{}{}, "vector"))
	assert.InDelta(t, 1/sqrt6(), Ochiai(q, "vector memory"), 1e-9)
}

func sqrt6() float64 { return 2.449489742783178 }
