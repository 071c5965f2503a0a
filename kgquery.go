package graphein

import (
	"context"

	"github.com/graphein/graphein/pkg/types"
)

// KGQuery answers a graph query, serving from the query cache when possible.
// The second return value reports a cache hit.
func (e *Engine) KGQuery(ctx context.Context, q *types.GraphQuery) (*types.GraphResult, bool, error) {
	e.mu.RLock()
	g := e.graph
	e.mu.RUnlock()

	return e.cache.GetOrCompute(q.CacheKey(), func() (*types.GraphResult, error) {
		return g.Query(ctx, q)
	})
}

// SnapshotPreview is a bounded view of the graph for dashboards.
type SnapshotPreview struct {
	Nodes           int                   `json:"nodes"`
	Edges           int                   `json:"edges"`
	SampleEntities  []*types.EntityResult `json:"sample"`
	SampleRelations []*types.Relation     `json:"sample_relations"`
}

// GraphSnapshot returns graph totals plus a small sample of nodes and edges.
func (e *Engine) GraphSnapshot(ctx context.Context, sampleSize int) (*SnapshotPreview, error) {
	if sampleSize <= 0 {
		sampleSize = 10
	}

	e.mu.RLock()
	g := e.graph
	e.mu.RUnlock()

	nodes, edges := g.Counts()
	preview := &SnapshotPreview{Nodes: nodes, Edges: edges}

	entities, _, err := e.KGQuery(ctx, &types.GraphQuery{Kind: types.QueryEntities, Limit: sampleSize})
	if err != nil {
		return nil, err
	}
	preview.SampleEntities = entities.Entities

	relations, _, err := e.KGQuery(ctx, &types.GraphQuery{Kind: types.QueryRelations, Limit: sampleSize})
	if err != nil {
		return nil, err
	}
	preview.SampleRelations = relations.Relations
	return preview, nil
}

// IndexInfo reports index readiness and embedder health.
type IndexInfo struct {
	IndexDocs       int    `json:"index_docs"`
	Dimension       int    `json:"dimension"`
	ModelOK         bool   `json:"model_ok"`
	IndexReady      bool   `json:"index_matrix_ok"`
	SnapshotVersion uint64 `json:"snapshot_version"`
}

// Info reports the current index state.
func (e *Engine) Info() *IndexInfo {
	e.mu.RLock()
	idx := e.index
	modelOK := e.modelOK
	e.mu.RUnlock()

	info := &IndexInfo{
		Dimension: idx.Dimensions(),
		ModelOK:   modelOK,
	}
	if snap, err := idx.Snapshot(); err == nil {
		info.IndexReady = true
		info.IndexDocs = snap.Docs()
		info.SnapshotVersion = snap.Version
	}
	return info
}
