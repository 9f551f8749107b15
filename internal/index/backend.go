package index

// Hit is a backend match: the insertion position of an entry and its similarity.
type Hit struct {
	Position int
	Score    float64
}

// Backend is the nearest-neighbour structure behind an Index. Backends receive the
// full entry batch on Load and must rank by cosine similarity, best first, breaking
// ties by lower Position. Search is only called with 1 <= k <= number of entries.
type Backend interface {
	Name() string
	Load(entries []Entry) error
	Search(query []float32, k int) ([]Hit, error)
}
