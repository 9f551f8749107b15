package index

import (
	"cmp"
	"math"
	"slices"
)

// BackendFlat is the exact brute-force backend.
const BackendFlat = "flat"

// Flat compares the query against every entry. It is exact and the reference
// ranking for other backends.
type Flat struct {
	vectors [][]float32
	norms   []float64
}

// NewFlat returns an empty flat backend.
func NewFlat() *Flat { return &Flat{} }

// Name returns BackendFlat.
func (f *Flat) Name() string { return BackendFlat }

// Load keeps entries' vectors and precomputes their norms.
func (f *Flat) Load(entries []Entry) error {
	f.vectors = make([][]float32, len(entries))
	f.norms = make([]float64, len(entries))
	for i, e := range entries {
		f.vectors[i] = e.Vector
		f.norms[i] = norm(e.Vector)
	}
	return nil
}

// Search scores every entry and returns the best k.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	qn := norm(query)
	hits := make([]Hit, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = Hit{Position: i, Score: cosine(query, v, qn, f.norms[i])}
	}
	SortHits(hits)
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// SortHits orders hits best-first with insertion order as the tie-breaker.
func SortHits(hits []Hit) {
	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})
}

// CosineSimilarity returns 0 when either vector has zero length or norm.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return cosine(a, b, norm(a), norm(b))
}

func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	return dot(a, b) / (na * nb)
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
