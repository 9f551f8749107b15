// Package embedding holds the embedding provider adapters and decorators.
package embedding

import "ragchat/internal/domain"

// Preparer is implemented by embedders that must be fitted on the corpus
// before they can produce vectors (TF-IDF, for example).
type Preparer interface {
	Prepare(corpus []string) error
}

// Prepare fits e on corpus when e needs it; other embedders are left alone.
func Prepare(e domain.Embedder, corpus []string) error {
	if p, ok := e.(Preparer); ok {
		return p.Prepare(corpus)
	}
	return nil
}

// Wrapper is implemented by decorators around another embedder.
type Wrapper interface {
	Unwrap() domain.Embedder
}

// NeedsPreparation reports whether the innermost embedder is fitted on the corpus.
func NeedsPreparation(e domain.Embedder) bool {
	for {
		w, ok := e.(Wrapper)
		if !ok {
			break
		}
		e = w.Unwrap()
	}
	_, ok := e.(Preparer)
	return ok
}
