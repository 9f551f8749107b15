// Package chunker splits document pages into overlapping character windows.
package chunker

import (
	"iter"

	"ragchat/internal/domain"
	"ragchat/internal/normalize"
)

const (
	DefaultSize    = 1000
	DefaultOverlap = 100
)

// Chunker splits normalized page text into fixed-size, overlapping character windows.
type Chunker struct {
	size    int
	overlap int
}

// New validates the window parameters once; Split never fails afterwards.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, domain.Configf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, domain.Configf("chunk overlap must satisfy 0 <= overlap < %d, got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size is the window length in characters.
func (c *Chunker) Size() int { return c.size }

// Overlap is the number of characters shared by consecutive windows.
func (c *Chunker) Overlap() int { return c.overlap }

// Split yields the chunks of every page in order. The sequence is lazy and can be
// ranged over again to regenerate an identical result.
func (c *Chunker) Split(document domain.Document) iter.Seq[domain.Chunk] {
	return func(yield func(domain.Chunk) bool) {
		for i, page := range document.Pages {
			text := normalize.Text(page)
			for chunk := range c.splitPage(text) {
				chunk.Source = document.Path
				if chunk.Source == "" {
					chunk.Source = document.ID
				}
				chunk.Page = i + 1
				if !yield(chunk) {
					return
				}
			}
		}
	}
}

// Chunk collects Split into a slice.
func (c *Chunker) Chunk(document domain.Document) []domain.Chunk {
	var chunks []domain.Chunk
	for ch := range c.Split(document) {
		chunks = append(chunks, ch)
	}
	return chunks
}

func (c *Chunker) splitPage(text string) iter.Seq[domain.Chunk] {
	return func(yield func(domain.Chunk) bool) {
		if text == "" {
			return
		}
		// byte position of every rune start, plus the end of the string
		bounds := make([]int, 0, len(text)+1)
		for i := range text {
			bounds = append(bounds, i)
		}
		n := len(bounds)
		bounds = append(bounds, len(text))

		step := c.size - c.overlap
		for start := 0; ; start += step {
			end := min(start+c.size, n)
			ch := domain.Chunk{Text: text[bounds[start]:bounds[end]], Offset: start}
			if !yield(ch) || end == n {
				return
			}
		}
	}
}
