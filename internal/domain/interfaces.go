package domain

import (
	"context"
	"fmt"
)

// Document is a loaded source file: an identifier plus its page texts in order.
type Document struct {
	ID    string
	Path  string
	Pages []string
}

// Chunk is a bounded, provenance-tagged piece of a document page used for retrieval.
// Offset counts characters (runes) from the start of the normalized page text.
type Chunk struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Page   int    `json:"page"`
	Offset int    `json:"offset"`
}

// Tag is the provenance label placed in front of the chunk in a prompt.
func (c Chunk) Tag() string {
	return fmt.Sprintf("[%s p.%d]", c.Source, c.Page)
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Turn is one completed question/answer exchange. Seq orders turns within a session.
type Turn struct {
	Question string
	Answer   string
	Seq      int
}

// Citation points at the page a retrieved chunk came from.
type Citation struct {
	Source string
	Page   int
}

// Usage is optional token accounting reported by a generation provider.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Generation is the raw output of a generation provider.
type Generation struct {
	Answer string
	Usage  *Usage
}

// Answer is what a conversational turn returns to the caller.
type Answer struct {
	Text      string
	Query     string
	Citations []Citation
	Chunks    []SearchResult
	Usage     *Usage
}

// Embedder converts free text into a fixed-dimension vector.
type Embedder interface {
	Name() string
	// Dimension may return 0 until the first vector has been produced.
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces an answer from an assembled prompt context and the user question.
type Generator interface {
	Name() string
	Generate(ctx context.Context, promptContext, question string) (Generation, error)
}

// DocumentSource yields documents for the given paths, globs or directories.
type DocumentSource interface {
	Load(ctx context.Context, paths []string) ([]Document, error)
}
