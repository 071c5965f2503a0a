// Package rerank provides second-pass reordering of hybrid search results.
// A reranker scores each candidate passage against the query with a finer
// signal than the first-pass fusion and returns passages sorted best-first.
package rerank

import (
	"context"
	"sort"
)

// RankedPassage is one reranked candidate. Index refers back to the caller's
// input slice so results can be joined with chunk metadata.
type RankedPassage struct {
	Index   int
	Passage string
	Score   float64
}

// Client scores passages against a query. Implementations must return one
// entry per input passage, sorted by descending score.
type Client interface {
	Rank(ctx context.Context, query string, passages []string) ([]RankedPassage, error)
}

// sortRanked orders passages by descending score, breaking ties on the
// original input position so equal-scored results stay stable.
func sortRanked(results []RankedPassage) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Index < results[j].Index
	})
}
