// Package vector provides a flat inner-product index for unit-normalized
// embedding vectors keyed by opaque string ids.
package vector

import "sort"

// Match is a single search result: an entry id and its cosine similarity
// to the query vector.
type Match struct {
	ID         string
	Similarity float32
}

type node struct {
	id  string
	vec []float32
}

// Flat is a brute-force index over unit-normalized vectors. Similarity is the
// inner product, which equals cosine similarity for unit vectors.
//
// Flat performs no internal locking. The owning cache serializes mutations and
// guarantees searches never run concurrently with an Add or Remove; concurrent
// searches are safe because they only read.
type Flat struct {
	dimension int
	nodes     []node         // insertion order, preserved across removals
	positions map[string]int // id -> index into nodes
}

// NewFlat creates a flat index for vectors of the given fixed dimension.
func NewFlat(dimension int) *Flat {
	return &Flat{
		dimension: dimension,
		positions: make(map[string]int),
	}
}

// Dimension returns the fixed vector dimension enforced by the index.
func (f *Flat) Dimension() int { return f.dimension }

// Len returns the number of vectors currently stored.
func (f *Flat) Len() int { return len(f.nodes) }

// Contains reports whether id is present in the index.
func (f *Flat) Contains(id string) bool {
	_, ok := f.positions[id]
	return ok
}

// Add inserts a vector under id. It rejects vectors whose dimension does not
// match the configured dimension and ids that are already present.
// The vector is stored as-is; callers normalize before insertion.
func (f *Flat) Add(id string, vec []float32) error {
	if len(vec) != f.dimension {
		return &ErrDimensionMismatch{Expected: f.dimension, Actual: len(vec)}
	}
	if _, ok := f.positions[id]; ok {
		return &ErrDuplicateID{ID: id}
	}
	f.positions[id] = len(f.nodes)
	f.nodes = append(f.nodes, node{id: id, vec: vec})
	return nil
}

// Remove deletes id from the index. Removing an absent id is a no-op.
// Insertion order of the remaining vectors is preserved so that search
// tie-breaking stays deterministic.
func (f *Flat) Remove(id string) {
	pos, ok := f.positions[id]
	if !ok {
		return
	}
	f.nodes = append(f.nodes[:pos], f.nodes[pos+1:]...)
	delete(f.positions, id)
	for i := pos; i < len(f.nodes); i++ {
		f.positions[f.nodes[i].id] = i
	}
}

// Search returns up to k matches ordered by descending similarity. Ties are
// broken by insertion order: the earlier-inserted vector wins. Calling Search
// twice against the same index state yields identical results.
func (f *Flat) Search(query []float32, k int) ([]Match, error) {
	if len(query) != f.dimension {
		return nil, &ErrDimensionMismatch{Expected: f.dimension, Actual: len(query)}
	}
	if k <= 0 || len(f.nodes) == 0 {
		return nil, nil
	}

	type scored struct {
		pos int
		sim float32
	}
	results := make([]scored, len(f.nodes))
	for i, n := range f.nodes {
		results[i] = scored{pos: i, sim: Dot(query, n.vec)}
	}

	// Stable sort on descending similarity keeps insertion order for equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].sim > results[j].sim
	})

	if k > len(results) {
		k = len(results)
	}
	matches := make([]Match, k)
	for i := 0; i < k; i++ {
		matches[i] = Match{ID: f.nodes[results[i].pos].id, Similarity: results[i].sim}
	}
	return matches, nil
}

// Clear removes all vectors from the index.
func (f *Flat) Clear() {
	f.nodes = nil
	f.positions = make(map[string]int)
}
