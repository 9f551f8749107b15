package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"ragchat/internal/domain"
)

var errFake = errors.New("provider down")

// keywordEmbedder maps text onto counts of a few fixed words plus a bias term.
type keywordEmbedder struct {
	calls  atomic.Int32
	failOn string
}

var keywords = []string{"cat", "dog", "fish"}

func (e *keywordEmbedder) Name() string   { return "keyword" }
func (e *keywordEmbedder) Dimension() int { return len(keywords) + 1 }

func (e *keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, errFake
	}
	lower := strings.ToLower(text)
	vec := make([]float32, len(keywords)+1)
	for i, k := range keywords {
		vec[i] = float32(strings.Count(lower, k))
	}
	vec[len(keywords)] = 0.1
	return vec, nil
}

type call struct {
	promptContext string
	question      string
}

// scriptedGenerator answers "answer N" and records what it was given.
type scriptedGenerator struct {
	mu    sync.Mutex
	calls []call
	err   error
	usage *domain.Usage
	// hook runs inside Generate before it returns.
	hook func(ctx context.Context) error
}

func (g *scriptedGenerator) Name() string { return "scripted" }

func (g *scriptedGenerator) Generate(ctx context.Context, promptContext, question string) (domain.Generation, error) {
	g.mu.Lock()
	g.calls = append(g.calls, call{promptContext: promptContext, question: question})
	n := len(g.calls)
	hook, err := g.hook, g.err
	g.mu.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return domain.Generation{}, err
		}
	}
	if err != nil {
		return domain.Generation{}, err
	}
	return domain.Generation{Answer: "answer " + string(rune('0'+n)), Usage: g.usage}, nil
}

func (g *scriptedGenerator) lastCall() call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[len(g.calls)-1]
}

type staticSource struct {
	docs []domain.Document
	err  error
}

func (s staticSource) Load(ctx context.Context, _ []string) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.docs, s.err
}
