package rerank

import (
	"context"
	"fmt"

	"github.com/graphein/graphein/pkg/embedder"
	"github.com/graphein/graphein/pkg/utils"
)

// EmbeddingClient reranks by cosine similarity between fresh query and
// passage embeddings. Not a true cross-encoder, but a finer signal than the
// first-pass scores because the passages are embedded in full rather than
// looked up from the index snapshot.
type EmbeddingClient struct {
	embedder embedder.Client
}

func NewEmbeddingClient(client embedder.Client) *EmbeddingClient {
	return &EmbeddingClient{embedder: client}
}

func (c *EmbeddingClient) Rank(ctx context.Context, query string, passages []string) ([]RankedPassage, error) {
	if len(passages) == 0 {
		return []RankedPassage{}, nil
	}

	queryVec, err := c.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	passageVecs, err := c.embedder.Embed(ctx, passages)
	if err != nil {
		return nil, fmt.Errorf("embed passages: %w", err)
	}
	if len(passageVecs) != len(passages) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d passages", len(passageVecs), len(passages))
	}

	results := make([]RankedPassage, 0, len(passages))
	for i, passage := range passages {
		results = append(results, RankedPassage{
			Index:   i,
			Passage: passage,
			Score:   utils.CosineSimilarity(queryVec, passageVecs[i]),
		})
	}
	sortRanked(results)
	return results, nil
}
