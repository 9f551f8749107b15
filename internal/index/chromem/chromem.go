// Package chromem backs an index with an in-memory chromem-go collection.
//
// chromem normalizes vectors and scores by cosine similarity, so rankings match
// the flat backend up to float32 rounding. Zero-norm vectors cannot be
// normalized; they are kept outside the collection and score 0, as in flat.
// Entries with equal similarity are reordered by insertion position, but
// chromem's own top-k cut may drop a tied entry at the boundary that flat would
// have kept.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strconv"

	"github.com/philippgille/chromem-go"

	"ragchat/internal/index"
)

const (
	// BackendName selects this backend in index.backend.
	BackendName    = "chromem"
	collectionName = "chunks"
)

var errNoEmbedding = errors.New("chromem backend only accepts precomputed vectors")

// Backend implements index.Backend.
type Backend struct {
	db         *chromem.DB
	collection *chromem.Collection

	// positions of zero-norm vectors, ascending
	zero  []int
	total int
}

// New returns an unloaded backend.
func New() *Backend { return &Backend{} }

// Name returns BackendName.
func (b *Backend) Name() string { return BackendName }

// Load replaces the collection with entries.
func (b *Backend) Load(entries []index.Entry) error {
	db := chromem.NewDB()
	col, err := db.CreateCollection(collectionName, nil, noEmbedding)
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}
	var zero []int
	docs := make([]chromem.Document, 0, len(entries))
	for i, e := range entries {
		if isZero(e.Vector) {
			zero = append(zero, i)
			continue
		}
		docs = append(docs, chromem.Document{
			ID: strconv.Itoa(i),
			// chromem normalizes in place
			Embedding: slices.Clone(e.Vector),
			Content:   e.Chunk.Text,
		})
	}
	if len(docs) > 0 {
		if err := col.AddDocuments(context.Background(), docs, runtime.NumCPU()); err != nil {
			return fmt.Errorf("adding documents: %w", err)
		}
	}
	b.db = db
	b.collection = col
	b.zero = zero
	b.total = len(entries)
	return nil
}

// Search returns the k entries most similar to query, best first.
func (b *Backend) Search(query []float32, k int) ([]index.Hit, error) {
	if b.collection == nil {
		return nil, errors.New("chromem backend not loaded")
	}
	k = min(k, b.total)
	if k <= 0 {
		return nil, nil
	}
	// every entry scores 0 against a zero query
	if isZero(query) {
		hits := make([]index.Hit, k)
		for i := range hits {
			hits[i] = index.Hit{Position: i}
		}
		return hits, nil
	}

	hits := make([]index.Hit, 0, k+len(b.zero))
	if n := min(k, b.collection.Count()); n > 0 {
		results, err := b.collection.QueryEmbedding(context.Background(), slices.Clone(query), n, nil, nil)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			pos, err := strconv.Atoi(r.ID)
			if err != nil {
				return nil, fmt.Errorf("unexpected document id %q: %w", r.ID, err)
			}
			hits = append(hits, index.Hit{Position: pos, Score: float64(r.Similarity)})
		}
	}
	for _, pos := range b.zero {
		hits = append(hits, index.Hit{Position: pos})
	}
	index.SortHits(hits)
	return hits[:min(k, len(hits))], nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbedding
}
