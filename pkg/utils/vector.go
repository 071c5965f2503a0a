// Package utils provides small shared helpers: vector math for the
// similarity indexes and panic containment for pluggable extractors.
package utils

import (
	"container/heap"
	"math"
)

// Dot returns the inner product of two float32 vectors, or 0 when the
// lengths differ.
func Dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Magnitude returns the L2 norm of a vector.
func Magnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of v, or nil when v is empty or has
// zero magnitude. On L2-normalized vectors the inner product equals cosine
// similarity, which lets the vector index precompute norms at insert time.
func Normalize(v []float32) []float32 {
	if len(v) == 0 {
		return nil
	}
	mag := Magnitude(v)
	if mag == 0 {
		return nil
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / mag)
	}
	return out
}

// CosineSimilarity computes cosine similarity between two vectors without
// assuming either is normalized. Returns 0 on length mismatch, empty input,
// or zero magnitude.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Scored pairs an item with a relevance score for top-K selection.
type Scored[T any] struct {
	Item  T
	Score float64
}

// scoredHeap is a min-heap ordered by score; the Less function is injected
// so callers can layer a deterministic tie-break on top of the score.
type scoredHeap[T any] struct {
	items []Scored[T]
	less  func(a, b Scored[T]) bool
}

func (h *scoredHeap[T]) Len() int           { return len(h.items) }
func (h *scoredHeap[T]) Less(i, j int) bool { return h.less(h.items[i], h.items[j]) }
func (h *scoredHeap[T]) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *scoredHeap[T]) Push(x any)         { h.items = append(h.items, x.(Scored[T])) }
func (h *scoredHeap[T]) Pop() any {
	old := h.items
	n := len(old)
	x := old[n-1]
	h.items = old[:n-1]
	return x
}

// TopK returns the k highest-scoring items in descending score order,
// O(n log k). The worse function reports whether a ranks below b; it defines
// both the heap order and the final sort, so ties resolve deterministically.
func TopK[T any](items []Scored[T], k int, worse func(a, b Scored[T]) bool) []Scored[T] {
	if k <= 0 || len(items) == 0 {
		return nil
	}
	h := &scoredHeap[T]{less: worse, items: make([]Scored[T], 0, min(k, len(items)))}
	heap.Init(h)
	for _, item := range items {
		if h.Len() < k {
			heap.Push(h, item)
		} else if worse(h.items[0], item) {
			heap.Pop(h)
			heap.Push(h, item)
		}
	}
	out := make([]Scored[T], h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(Scored[T])
	}
	return out
}
