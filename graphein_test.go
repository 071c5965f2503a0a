package graphein

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphein/graphein/pkg/chunker"
	"github.com/graphein/graphein/pkg/embedder"
	"github.com/graphein/graphein/pkg/persist"
	"github.com/graphein/graphein/pkg/rerank"
	"github.com/graphein/graphein/pkg/types"
)

const exampleText = "Contact Alice at alice@example.com. Bob works at Example Corp. alice@example.com also emailed Bob."

func newTestEngine(t *testing.T, mutate ...func(*Options)) (*Engine, *embedder.MockClient) {
	t.Helper()
	mock := embedder.NewMockClient(32)
	opts := Options{
		Embedder:     mock,
		Chunker:      chunker.Config{MaxTokens: 100, OverlapTokens: 10},
		TokenCounter: chunker.ApproxCounter{},
	}
	for _, m := range mutate {
		m(&opts)
	}
	e, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e, mock
}

func TestIngestValidation(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Ingest(context.Background(), IngestRequest{Text: "hello"})
	assert.ErrorIs(t, err, types.ErrEmptySourceURI)
	_, err = e.Ingest(context.Background(), IngestRequest{SourceURI: "mem://a"})
	assert.ErrorIs(t, err, types.ErrEmptyContent)

	// Whitespace-only text would chunk to nothing, so it is rejected too.
	_, err = e.Ingest(context.Background(), IngestRequest{SourceURI: "mem://a", Text: " \n\t "})
	assert.ErrorIs(t, err, types.ErrEmptyContent)
}

func TestIngestIsIdempotent(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := e.Ingest(ctx, IngestRequest{SourceURI: "mem://a", Text: exampleText})
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.Greater(t, first.ChunksCreated, 0)
	assert.Greater(t, first.EntitiesCreated, 0)
	assert.Greater(t, first.RelationsCreated, 0)

	second, err := e.Ingest(ctx, IngestRequest{SourceURI: "mem://a", Text: exampleText})
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.DocumentID, second.DocumentID)
	assert.Zero(t, second.ChunksCreated)
	assert.Zero(t, second.EntitiesCreated)
	assert.Zero(t, second.RelationsCreated)

	// The searchable chunk set is unchanged.
	resp, err := e.Search(ctx, SearchRequest{Query: "alice example", Mode: ModeKeyword})
	require.NoError(t, err)
	assert.Len(t, resp.Items, first.ChunksCreated)
}

func TestIngestSupersedesChangedContent(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := e.Ingest(ctx, IngestRequest{SourceURI: "mem://a", Text: "Bob works at Example Corp."})
	require.NoError(t, err)

	second, err := e.Ingest(ctx, IngestRequest{SourceURI: "mem://a", Text: "Carol works at Other Inc."})
	require.NoError(t, err)
	assert.False(t, second.Duplicate)
	assert.NotEqual(t, first.DocumentID, second.DocumentID)

	// Graph state from the superseded version is gone.
	res, _, err := e.KGQuery(ctx, &types.GraphQuery{Kind: types.QueryEntities, EntityType: "person"})
	require.NoError(t, err)
	require.Len(t, res.Entities, 1)
	assert.Equal(t, "person:carol", res.Entities[0].ID)
}

func TestEndToEndExample(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Ingest(ctx, IngestRequest{SourceURI: "mem://example", Text: exampleText})
	require.NoError(t, err)

	entities, _, err := e.KGQuery(ctx, &types.GraphQuery{Kind: types.QueryEntities})
	require.NoError(t, err)
	ids := map[string]bool{}
	for _, ent := range entities.Entities {
		ids[ent.ID] = true
	}
	assert.True(t, ids["email:alice@example.com"])
	assert.True(t, ids["person:bob"])
	assert.True(t, ids["org:example corp"])

	worksAt, _, err := e.KGQuery(ctx, &types.GraphQuery{
		Kind:         types.QueryRelations,
		RelationType: "works_at",
	})
	require.NoError(t, err)
	require.Len(t, worksAt.Relations, 1)

	cooc, _, err := e.KGQuery(ctx, &types.GraphQuery{
		Kind:         types.QueryRelations,
		RelationType: "cooccurrence",
	})
	require.NoError(t, err)
	require.NotEmpty(t, cooc.Relations)
	for _, rel := range cooc.Relations {
		assert.Less(t, rel.Strength, worksAt.Relations[0].Strength)
	}
}

func TestSearchBeforeIngest(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Search(context.Background(), SearchRequest{Query: "anything"})
	assert.ErrorIs(t, err, types.ErrIndexNotReady)
}

func TestSearchModes(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Ingest(ctx, IngestRequest{SourceURI: "mem://a", Text: "The vector index rebuilds atomically."})
	require.NoError(t, err)
	_, err = e.Ingest(ctx, IngestRequest{SourceURI: "mem://b", Text: "Keyword scoring uses term frequencies."})
	require.NoError(t, err)

	for _, mode := range []SearchMode{ModeSemantic, ModeKeyword, ModeHybrid} {
		resp, err := e.Search(ctx, SearchRequest{Query: "vector index", Mode: mode})
		require.NoError(t, err, "mode %s", mode)
		assert.False(t, resp.Degraded)
		assert.NotEmpty(t, resp.Items, "mode %s", mode)
		assert.GreaterOrEqual(t, resp.QueryTimeMS, int64(0))
	}

	resp, err := e.Search(ctx, SearchRequest{Query: "keyword term frequencies", Mode: ModeKeyword})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Items)
	assert.Contains(t, resp.Items[0].Content, "Keyword scoring")
}

func TestSearchAlphaBoundaries(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Ingest(ctx, IngestRequest{SourceURI: "mem://a", Text: "The vector index rebuilds atomically after every insert."})
	require.NoError(t, err)
	_, err = e.Ingest(ctx, IngestRequest{SourceURI: "mem://b", Text: "Keyword scoring uses term frequencies and document length."})
	require.NoError(t, err)
	_, err = e.Ingest(ctx, IngestRequest{SourceURI: "mem://c", Text: "Snapshots version the graph store for crash safety."})
	require.NoError(t, err)

	chunkIDs := func(resp *SearchResponse) []string {
		ids := make([]string, len(resp.Items))
		for i, item := range resp.Items {
			ids[i] = item.ChunkID
		}
		return ids
	}
	alpha := func(v float64) *float64 { return &v }

	query := "vector index rebuilds"

	// Alpha 0 is pure keyword weighting, not the engine default.
	keyword, err := e.Search(ctx, SearchRequest{Query: query, Mode: ModeKeyword})
	require.NoError(t, err)
	zero, err := e.Search(ctx, SearchRequest{Query: query, Mode: ModeHybrid, Alpha: alpha(0)})
	require.NoError(t, err)
	assert.Equal(t, chunkIDs(keyword), chunkIDs(zero))

	// Alpha 1 is pure semantic weighting.
	semantic, err := e.Search(ctx, SearchRequest{Query: query, Mode: ModeSemantic})
	require.NoError(t, err)
	one, err := e.Search(ctx, SearchRequest{Query: query, Mode: ModeHybrid, Alpha: alpha(1)})
	require.NoError(t, err)
	assert.Equal(t, chunkIDs(semantic), chunkIDs(one))

	// Unset alpha takes the engine default without error.
	fused, err := e.Search(ctx, SearchRequest{Query: query, Mode: ModeHybrid})
	require.NoError(t, err)
	assert.NotEmpty(t, fused.Items)
}

func TestSearchDegradesWhenEmbedderFails(t *testing.T) {
	e, mock := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Ingest(ctx, IngestRequest{SourceURI: "mem://a", Text: "hybrid search fuses scores"})
	require.NoError(t, err)

	mock.EmbedFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, types.ErrModelUnavailable
	}

	resp, err := e.Search(ctx, SearchRequest{Query: "hybrid search", Mode: ModeHybrid})
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.NotEmpty(t, resp.Warning)
	assert.NotEmpty(t, resp.Items)

	assert.False(t, e.Info().ModelOK)
}

func TestSearchWithReranker(t *testing.T) {
	e, _ := newTestEngine(t, func(o *Options) {
		o.Reranker = rerank.NewLocalClient()
	})
	ctx := context.Background()

	_, err := e.Ingest(ctx, IngestRequest{SourceURI: "mem://a", Text: "graph traversal visits nodes breadth first"})
	require.NoError(t, err)
	_, err = e.Ingest(ctx, IngestRequest{SourceURI: "mem://b", Text: "cooking dinner with fresh vegetables"})
	require.NoError(t, err)

	resp, err := e.Search(ctx, SearchRequest{Query: "graph traversal", Mode: ModeKeyword, Rerank: true})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Items)
	assert.Contains(t, resp.Items[0].Content, "graph traversal")
}

func TestDeleteDocument(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	result, err := e.Ingest(ctx, IngestRequest{SourceURI: "mem://a", Text: "Bob works at Example Corp."})
	require.NoError(t, err)

	found, err := e.DeleteDocument(ctx, result.DocumentID)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = e.DeleteDocument(ctx, result.DocumentID)
	require.NoError(t, err)
	assert.False(t, found)

	// Chunks and graph state are gone.
	resp, err := e.Search(ctx, SearchRequest{Query: "Example Corp", Mode: ModeKeyword})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)

	stats, _, err := e.KGQuery(ctx, &types.GraphQuery{Kind: types.QueryStatistics})
	require.NoError(t, err)
	assert.Zero(t, stats.Statistics.NodeCount)
}

func TestKGQueryCaching(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Ingest(ctx, IngestRequest{SourceURI: "mem://a", Text: "Bob works at Example Corp."})
	require.NoError(t, err)

	q := &types.GraphQuery{Kind: types.QueryStatistics}
	_, cached, err := e.KGQuery(ctx, q)
	require.NoError(t, err)
	assert.False(t, cached)

	_, cached, err = e.KGQuery(ctx, q)
	require.NoError(t, err)
	assert.True(t, cached)

	// Any ingest invalidates cached results.
	_, err = e.Ingest(ctx, IngestRequest{SourceURI: "mem://b", Text: "Carol works at Other Inc."})
	require.NoError(t, err)

	_, cached, err = e.KGQuery(ctx, q)
	require.NoError(t, err)
	assert.False(t, cached)
}

func TestInfoLifecycle(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	info := e.Info()
	assert.False(t, info.IndexReady)
	assert.Equal(t, 32, info.Dimension)
	assert.True(t, info.ModelOK)

	_, err := e.Ingest(ctx, IngestRequest{SourceURI: "mem://a", Text: "some indexed content"})
	require.NoError(t, err)

	info = e.Info()
	assert.True(t, info.IndexReady)
	assert.Greater(t, info.IndexDocs, 0)
}

// newPersistedEngine builds an engine sharing store, closed by the caller's
// test via the store cleanup alone.
func newPersistedEngine(t *testing.T, store *persist.Store, dim int) *Engine {
	t.Helper()
	e, err := New(Options{
		Embedder: embedder.NewMockClient(dim),
		Chunker:  chunker.Config{MaxTokens: 100, OverlapTokens: 10},
		Persist:  store,
	})
	require.NoError(t, err)
	t.Cleanup(func() { e.pool.Release() })
	return e
}

func TestSnapshotRoundTrip(t *testing.T) {
	store, err := persist.Open("", true)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	e := newPersistedEngine(t, store, 32)
	ctx := context.Background()

	_, err = e.Ingest(ctx, IngestRequest{SourceURI: "mem://a", Text: exampleText, SaveSnapshot: true})
	require.NoError(t, err)

	restored := newPersistedEngine(t, store, 32)
	require.NoError(t, restored.LoadSnapshot())

	resp, err := restored.Search(ctx, SearchRequest{Query: "alice example", Mode: ModeKeyword})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Items)

	res, _, err := restored.KGQuery(ctx, &types.GraphQuery{Kind: types.QueryEntities, EntityType: "email"})
	require.NoError(t, err)
	require.Len(t, res.Entities, 1)
	assert.Equal(t, "email:alice@example.com", res.Entities[0].ID)

	// Re-ingesting the same source stays idempotent after restore.
	result, err := restored.Ingest(ctx, IngestRequest{SourceURI: "mem://a", Text: exampleText})
	require.NoError(t, err)
	assert.True(t, result.Duplicate)
}

func TestLoadSnapshotDimensionMismatch(t *testing.T) {
	store, err := persist.Open("", true)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	e := newPersistedEngine(t, store, 32)
	_, err = e.Ingest(context.Background(), IngestRequest{SourceURI: "mem://a", Text: "some stored content", SaveSnapshot: true})
	require.NoError(t, err)

	other := newPersistedEngine(t, store, 16)
	err = other.LoadSnapshot()

	var mismatch *types.DimensionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 16, mismatch.Want)
	assert.Equal(t, 32, mismatch.Got)
}
