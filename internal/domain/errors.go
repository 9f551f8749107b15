package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks invalid settings detected while constructing a component.
	ErrConfiguration = errors.New("configuration error")

	// ErrDimensionMismatch is returned when vectors of different lengths meet in one index.
	ErrDimensionMismatch = fmt.Errorf("%w: vector dimension mismatch", ErrConfiguration)

	// ErrProvider matches every *ProviderError via errors.Is.
	ErrProvider = errors.New("provider error")

	// ErrEmptyCorpus is returned when ingestion finds no documents to index.
	ErrEmptyCorpus = errors.New("empty corpus")

	// ErrBusy is returned by Ask while another turn is in flight.
	ErrBusy = errors.New("busy: a question is already being answered")
)

// ProviderError wraps a failed embedding or generation call. It is safe to retry.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is reports ErrProvider so callers can match the whole class.
func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// NewProviderError wraps err unless it already is a *ProviderError.
func NewProviderError(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Provider: provider, Op: op, Err: err}
}

// Configf builds an ErrConfiguration with a formatted detail message.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
