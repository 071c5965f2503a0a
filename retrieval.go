package graphein

import (
	"context"
	"fmt"
	"time"

	"github.com/graphein/graphein/pkg/index"
	"github.com/graphein/graphein/pkg/types"
)

// SearchMode selects how chunk relevance is computed.
type SearchMode string

const (
	ModeSemantic SearchMode = "semantic"
	ModeKeyword  SearchMode = "keyword"
	ModeHybrid   SearchMode = "hybrid"
)

// ParseSearchMode validates a wire mode name. Empty defaults to hybrid.
func ParseSearchMode(s string) (SearchMode, error) {
	switch SearchMode(s) {
	case ModeSemantic, ModeKeyword, ModeHybrid:
		return SearchMode(s), nil
	case "":
		return ModeHybrid, nil
	default:
		return "", fmt.Errorf("invalid search mode %q", s)
	}
}

// SearchRequest describes one retrieval query.
type SearchRequest struct {
	Query string
	Mode  SearchMode

	// Alpha weights semantic against keyword relevance in hybrid mode;
	// nil falls back to the engine default. Zero and one are meaningful:
	// they select the pure keyword and pure semantic rankings.
	Alpha *float64

	// TopK bounds the result count; <=0 falls back to the engine default.
	TopK int

	// Rerank applies the configured second-pass reranker to the results.
	Rerank bool
}

// SearchItem is one ranked chunk.
type SearchItem struct {
	ChunkID    string            `json:"chunk_id"`
	DocumentID string            `json:"document_id"`
	Content    string            `json:"content"`
	Score      float64           `json:"score"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SearchResponse carries ranked results plus degradation and timing info.
type SearchResponse struct {
	Items []SearchItem `json:"items"`

	// Degraded is set when a semantic or hybrid request fell back to
	// keyword-only scoring because the embedder was unavailable.
	Degraded bool   `json:"degraded,omitempty"`
	Warning  string `json:"warning,omitempty"`

	QueryTimeMS int64 `json:"query_time_ms"`
}

// Search ranks indexed chunks against the query. Semantic and hybrid
// requests degrade to keyword-only scoring when the embedder is
// unavailable, flagged in the response instead of failing it.
func (e *Engine) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	started := time.Now()

	if req.Query == "" {
		return nil, types.ErrEmptyContent
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeHybrid
	}
	topK := req.TopK
	if topK <= 0 {
		topK = e.defaultTopK
	}
	alpha := e.defaultAlpha
	if req.Alpha != nil && *req.Alpha >= 0 && *req.Alpha <= 1 {
		alpha = *req.Alpha
	}

	e.mu.RLock()
	idx := e.index
	e.mu.RUnlock()

	snap, err := idx.Snapshot()
	if err != nil {
		return nil, err
	}

	resp := &SearchResponse{}

	var queryVector []float32
	if mode != ModeKeyword {
		queryVector, err = e.embedder.EmbedSingle(ctx, req.Query)
		if err != nil {
			e.mu.Lock()
			e.modelOK = false
			e.mu.Unlock()
			mode = ModeKeyword
			resp.Degraded = true
			resp.Warning = "embedding unavailable, keyword-only results"
			e.logger.Warn("search degraded to keyword mode", "error", err)
		} else {
			e.mu.Lock()
			e.modelOK = true
			e.mu.Unlock()
		}
	}
	queryTokens := index.Tokenize(req.Query)

	var hits []index.Hit
	switch mode {
	case ModeSemantic:
		hits = snap.Vector.Search(queryVector, topK)
	case ModeKeyword:
		hits = snap.Keyword.Search(queryTokens, topK)
	default:
		hits = snap.HybridSearch(queryVector, queryTokens, topK, alpha)
	}

	resp.Items = e.resolveHits(hits)

	if req.Rerank && e.reranker != nil && len(resp.Items) > 1 {
		e.rerankItems(ctx, req.Query, resp)
	}

	resp.QueryTimeMS = time.Since(started).Milliseconds()
	e.logger.Info("search completed",
		"mode", string(mode),
		"hits", len(resp.Items),
		"snapshot_version", snap.Version,
		"query_time_ms", resp.QueryTimeMS,
	)
	return resp, nil
}

// resolveHits joins index hits with chunk text and document metadata.
func (e *Engine) resolveHits(hits []index.Hit) []SearchItem {
	e.mu.RLock()
	defer e.mu.RUnlock()

	items := make([]SearchItem, 0, len(hits))
	for _, hit := range hits {
		chunk, ok := e.chunks[hit.ChunkID]
		if !ok {
			// The chunk was deleted after the snapshot was taken.
			continue
		}
		item := SearchItem{
			ChunkID:    chunk.ID,
			DocumentID: chunk.DocumentID,
			Content:    chunk.Text,
			Score:      hit.Score,
		}
		if doc, ok := e.documents[chunk.DocumentID]; ok {
			item.Metadata = doc.Metadata
		}
		items = append(items, item)
	}
	return items
}

// rerankItems reorders the response in place using the configured reranker.
// Rerank failures keep the first-pass order and are logged, not surfaced.
func (e *Engine) rerankItems(ctx context.Context, query string, resp *SearchResponse) {
	passages := make([]string, len(resp.Items))
	for i, item := range resp.Items {
		passages[i] = item.Content
	}

	ranked, err := e.reranker.Rank(ctx, query, passages)
	if err != nil || len(ranked) != len(resp.Items) {
		e.logger.Warn("rerank failed, keeping first-pass order", "error", err)
		return
	}

	reordered := make([]SearchItem, 0, len(resp.Items))
	for _, r := range ranked {
		item := resp.Items[r.Index]
		item.Score = r.Score
		reordered = append(reordered, item)
	}
	resp.Items = reordered
}
