// Package memory keeps the bounded conversation window shown to the generator.
package memory

import (
	"sync"

	"ragchat/internal/domain"
)

// Window holds the most recent turns in a fixed-capacity ring. Eviction is strictly FIFO.
type Window struct {
	mu    sync.RWMutex
	turns []domain.Turn
	head  int // index of the oldest turn
	size  int
}

// New creates a window retaining at most w turns.
func New(w int) (*Window, error) {
	if w <= 0 {
		return nil, domain.Configf("memory window must be positive, got %d", w)
	}
	return &Window{turns: make([]domain.Turn, w)}, nil
}

// Append adds turn as the newest entry, evicting the oldest one when full.
func (m *Window) Append(turn domain.Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	capacity := len(m.turns)
	if m.size < capacity {
		m.turns[(m.head+m.size)%capacity] = turn
		m.size++
		return
	}
	m.turns[m.head] = turn
	m.head = (m.head + 1) % capacity
}

// History returns a copy of the retained turns, oldest first.
func (m *Window) History() []domain.Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Turn, m.size)
	for i := range m.size {
		out[i] = m.turns[(m.head+i)%len(m.turns)]
	}
	return out
}

// Len returns the number of retained turns.
func (m *Window) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

// Cap returns the window size.
func (m *Window) Cap() int { return len(m.turns) }
