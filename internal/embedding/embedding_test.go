package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
)

type countingEmbedder struct {
	mu       sync.Mutex
	calls    int
	prepared []string
	fail     bool
}

func (c *countingEmbedder) Name() string   { return "counting" }
func (c *countingEmbedder) Dimension() int { return 2 }

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.fail {
		return nil, errors.New("boom")
	}
	return []float32{float32(len(text)), float32(c.calls)}, nil
}

type preparingEmbedder struct{ countingEmbedder }

func (p *preparingEmbedder) Prepare(corpus []string) error {
	p.prepared = corpus
	return nil
}

func TestCached(t *testing.T) {
	inner := &countingEmbedder{}
	c := NewCached(inner)
	ctx := context.Background()

	v1, err := c.Embed(ctx, "abc")
	require.NoError(t, err)
	v2, err := c.Embed(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, inner.calls)

	// callers cannot corrupt the cached copy
	v2[0] = 99
	v3, err := c.Embed(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, float32(3), v3[0])

	_, err = c.Embed(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestCached_DoesNotCacheFailures(t *testing.T) {
	inner := &countingEmbedder{fail: true}
	c := NewCached(inner)

	_, err := c.Embed(context.Background(), "x")
	require.Error(t, err)
	_, err = c.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 0, c.Len())
}

func TestCached_PrepareClearsCache(t *testing.T) {
	inner := &preparingEmbedder{}
	c := NewCached(inner)
	_, err := c.Embed(context.Background(), "x")
	require.NoError(t, err)

	require.NoError(t, c.Prepare([]string{"corpus"}))
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, []string{"corpus"}, inner.prepared)
}

func TestNeedsPreparation(t *testing.T) {
	assert.False(t, NeedsPreparation(&countingEmbedder{}))
	assert.True(t, NeedsPreparation(&preparingEmbedder{}))
	assert.False(t, NeedsPreparation(NewCached(&countingEmbedder{})))
	assert.True(t, NeedsPreparation(NewRateLimited(NewCached(&preparingEmbedder{}), 10, 1)))
	assert.NoError(t, Prepare(&countingEmbedder{}, nil))
}

func TestRateLimited(t *testing.T) {
	inner := &countingEmbedder{}
	r := NewRateLimited(inner, 1, 1)
	assert.Equal(t, "counting", r.Name())

	_, err := r.Embed(context.Background(), "first")
	require.NoError(t, err)

	// the next token is a second away; a short deadline fails fast as a provider error
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = r.Embed(ctx, "second")
	require.ErrorIs(t, err, domain.ErrProvider)
	assert.Equal(t, 1, inner.calls)
}

type blockingEmbedder struct {
	preparingEmbedder
	started chan struct{}
	release chan struct{}
}

func (b *blockingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	close(b.started)
	<-b.release
	return b.preparingEmbedder.Embed(ctx, text)
}

func TestCached_PrepareDuringEmbedDropsStaleVector(t *testing.T) {
	inner := &blockingEmbedder{started: make(chan struct{}), release: make(chan struct{})}
	c := NewCached(inner)

	done := make(chan error, 1)
	go func() {
		_, err := c.Embed(context.Background(), "old model")
		done <- err
	}()
	<-inner.started
	require.NoError(t, c.Prepare([]string{"new corpus"}))
	close(inner.release)
	require.NoError(t, <-done)

	assert.Equal(t, 0, c.Len())
}
