package embedding

import (
	"context"
	"slices"
	"sync"

	"ragchat/internal/domain"
)

// Cached memoizes vectors by exact input text for the lifetime of one session.
// Failed calls are not cached.
type Cached struct {
	inner domain.Embedder
	mu    sync.RWMutex
	cache map[string][]float32

	// bumped by Prepare; a vector computed under an older generation is not stored
	gen uint64
}

// NewCached wraps inner with an empty cache.
func NewCached(inner domain.Embedder) *Cached {
	return &Cached{inner: inner, cache: make(map[string][]float32)}
}

func (c *Cached) Name() string            { return c.inner.Name() }
func (c *Cached) Dimension() int          { return c.inner.Dimension() }
func (c *Cached) Unwrap() domain.Embedder { return c.inner }

func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.RLock()
	v, ok := c.cache[text]
	gen := c.gen
	c.mu.RUnlock()
	if ok {
		return slices.Clone(v), nil
	}
	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.gen == gen {
		c.cache[text] = slices.Clone(v)
	}
	c.mu.Unlock()
	return v, nil
}

// Prepare refits the inner embedder and drops every cached vector, since a
// refitted model maps the same text to a different vector.
func (c *Cached) Prepare(corpus []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string][]float32)
	c.gen++
	return Prepare(c.inner, corpus)
}

// Len returns the number of cached vectors.
func (c *Cached) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
