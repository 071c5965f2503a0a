package rerank

import (
	"context"
	"math"

	"github.com/graphein/graphein/pkg/index"
)

// LocalClient reranks with cosine similarity over term-frequency vectors.
// It shares the keyword index tokenizer, so scores reflect the same lexical
// view the first pass used, just computed pairwise against the query.
type LocalClient struct{}

func NewLocalClient() *LocalClient { return &LocalClient{} }

func (*LocalClient) Rank(ctx context.Context, query string, passages []string) ([]RankedPassage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	queryTF := termFrequencies(query)
	results := make([]RankedPassage, 0, len(passages))
	for i, passage := range passages {
		results = append(results, RankedPassage{
			Index:   i,
			Passage: passage,
			Score:   tfCosine(queryTF, termFrequencies(passage)),
		})
	}
	sortRanked(results)
	return results, nil
}

func termFrequencies(text string) map[string]float64 {
	tf := make(map[string]float64)
	for _, token := range index.Tokenize(text) {
		tf[token]++
	}
	return tf
}

func tfCosine(a, b map[string]float64) float64 {
	var dot, normA, normB float64
	for term, weight := range a {
		normA += weight * weight
		if other, ok := b[term]; ok {
			dot += weight * other
		}
	}
	for _, weight := range b {
		normB += weight * weight
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
