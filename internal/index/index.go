// Package index stores chunk vectors and answers k-nearest-neighbour queries
// ranked by cosine similarity.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"go.uber.org/zap"

	"ragchat/internal/domain"
)

const (
	// MetricCosine is the only similarity metric recorded in index files.
	MetricCosine  = "cosine"
	formatVersion = 1
)

// Entry is a stored vector and the chunk it was computed from.
type Entry struct {
	Vector []float32    `json:"vector"`
	Chunk  domain.Chunk `json:"chunk"`
}

// Index is safe for concurrent Search calls; Replace excludes all readers.
type Index struct {
	mu        sync.RWMutex
	entries   []Entry
	dimension int
	backend   Backend
	logger    *zap.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithBackend swaps the nearest-neighbour structure. Defaults to Flat.
func WithBackend(b Backend) Option {
	return func(ix *Index) {
		if b != nil {
			ix.backend = b
		}
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(ix *Index) {
		if l != nil {
			ix.logger = l
		}
	}
}

// Build constructs an index from a fixed batch. An empty batch yields a valid empty index.
func Build(entries []Entry, opts ...Option) (*Index, error) {
	ix := &Index{backend: NewFlat(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(ix)
	}
	if err := ix.Replace(entries); err != nil {
		return nil, err
	}
	return ix, nil
}

// Replace rebuilds the index contents from a new batch. On error the previous
// contents are kept.
func (ix *Index) Replace(entries []Entry) error {
	dim := 0
	owned := make([]Entry, len(entries))
	for i, e := range entries {
		if len(e.Vector) == 0 {
			return fmt.Errorf("%w: entry %d has an empty vector", domain.ErrDimensionMismatch, i)
		}
		if i == 0 {
			dim = len(e.Vector)
		} else if len(e.Vector) != dim {
			return fmt.Errorf("%w: entry %d has %d dimensions, expected %d",
				domain.ErrDimensionMismatch, i, len(e.Vector), dim)
		}
		owned[i] = Entry{Vector: slices.Clone(e.Vector), Chunk: e.Chunk}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.backend.Load(owned); err != nil {
		// the backend may hold partial state; restore it from the previous batch
		_ = ix.backend.Load(ix.entries)
		return fmt.Errorf("loading %s backend: %w", ix.backend.Name(), err)
	}
	ix.entries = owned
	ix.dimension = dim
	ix.logger.Debug("index built",
		zap.Int("entries", len(owned)),
		zap.Int("dimension", dim),
		zap.String("backend", ix.backend.Name()),
	)
	return nil
}

// Search returns at most k chunks, best first. Searching an empty index is not an error.
func (ix *Index) Search(query []float32, k int) ([]domain.SearchResult, error) {
	if k < 1 {
		return nil, domain.Configf("k must be at least 1, got %d", k)
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if len(ix.entries) == 0 {
		return []domain.SearchResult{}, nil
	}
	if len(query) != ix.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(query), ix.dimension)
	}
	hits, err := ix.backend.Search(query, min(k, len(ix.entries)))
	if err != nil {
		return nil, fmt.Errorf("%s search: %w", ix.backend.Name(), err)
	}
	results := make([]domain.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, domain.SearchResult{Chunk: ix.entries[h.Position].Chunk, Score: h.Score})
	}
	return results, nil
}

// Len returns the number of stored chunks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Dimension is 0 for an empty index.
func (ix *Index) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dimension
}

// Backend returns the name of the nearest-neighbour backend.
func (ix *Index) Backend() string { return ix.backend.Name() }

// Chunks returns the stored chunks in insertion order.
func (ix *Index) Chunks() []domain.Chunk {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]domain.Chunk, len(ix.entries))
	for i, e := range ix.entries {
		out[i] = e.Chunk
	}
	return out
}

type indexFile struct {
	FormatVersion int     `json:"format_version"`
	Metric        string  `json:"metric"`
	Dimension     int     `json:"dimension"`
	Backend       string  `json:"backend"`
	Entries       []Entry `json:"entries"`
}

// Persist writes every entry plus the metric and dimensionality to path.
// The file is replaced atomically.
func (ix *Index) Persist(path string) error {
	ix.mu.RLock()
	data, err := json.Marshal(indexFile{
		FormatVersion: formatVersion,
		Metric:        MetricCosine,
		Dimension:     ix.dimension,
		Backend:       ix.backend.Name(),
		Entries:       ix.entries,
	})
	ix.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Restore loads an index written by Persist.
func Restore(path string, opts ...Option) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f indexFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding index %s: %w", path, err)
	}
	if f.FormatVersion != formatVersion {
		return nil, fmt.Errorf("index %s: unsupported format version %d", path, f.FormatVersion)
	}
	if f.Metric != MetricCosine {
		return nil, fmt.Errorf("index %s: unsupported metric %q", path, f.Metric)
	}
	ix, err := Build(f.Entries, opts...)
	if err != nil {
		return nil, err
	}
	if len(f.Entries) > 0 && ix.Dimension() != f.Dimension {
		return nil, fmt.Errorf("%w: index %s declares %d dimensions, entries have %d",
			domain.ErrDimensionMismatch, path, f.Dimension, ix.Dimension())
	}
	return ix, nil
}
