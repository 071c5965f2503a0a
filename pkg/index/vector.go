package index

import (
	"sort"

	"github.com/graphein/graphein/pkg/utils"
)

// VectorSnapshot is an immutable flat vector index. Entries are stored in
// chunk-ID order with pre-normalized vectors, so search is a single pass of
// inner products.
type VectorSnapshot struct {
	dim     int
	ids     []string
	vectors [][]float32
}

func buildVectorSnapshot(dim int, staged map[string][]float32) *VectorSnapshot {
	ids := make([]string, 0, len(staged))
	for id := range staged {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	vectors := make([][]float32, len(ids))
	for i, id := range ids {
		vectors[i] = staged[id]
	}
	return &VectorSnapshot{dim: dim, ids: ids, vectors: vectors}
}

// Len reports the number of indexed vectors.
func (s *VectorSnapshot) Len() int {
	return len(s.ids)
}

// Search returns the k nearest chunks to the query vector by cosine
// similarity, ties broken by smaller chunk ID. The query is normalized
// here; stored vectors were normalized at insert.
func (s *VectorSnapshot) Search(query []float32, k int) []Hit {
	if k <= 0 || len(s.ids) == 0 || len(query) != s.dim {
		return nil
	}
	normalized := normalizeOrNil(query)
	if normalized == nil {
		return nil
	}

	scored := make([]utils.Scored[string], len(s.ids))
	for i, id := range s.ids {
		scored[i] = utils.Scored[string]{Item: id, Score: utils.Dot(normalized, s.vectors[i])}
	}
	top := utils.TopK(scored, k, func(a, b utils.Scored[string]) bool {
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		return a.Item > b.Item
	})

	hits := make([]Hit, len(top))
	for i, item := range top {
		hits[i] = Hit{ChunkID: item.Item, Score: item.Score}
	}
	return hits
}

// scoreAll returns the cosine similarity of every indexed chunk against the
// query, for hybrid fusion.
func (s *VectorSnapshot) scoreAll(query []float32) map[string]float64 {
	if len(s.ids) == 0 || len(query) != s.dim {
		return nil
	}
	normalized := normalizeOrNil(query)
	if normalized == nil {
		return nil
	}
	scores := make(map[string]float64, len(s.ids))
	for i, id := range s.ids {
		scores[id] = utils.Dot(normalized, s.vectors[i])
	}
	return scores
}

func normalizeOrNil(v []float32) []float32 {
	return utils.Normalize(v)
}
