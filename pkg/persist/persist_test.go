package persist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphein/graphein/pkg/graph"
	"github.com/graphein/graphein/pkg/index"
	"github.com/graphein/graphein/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", true)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSnapshot() *Snapshot {
	idx := index.NewManager(4)
	_ = idx.InsertVector("doc-1:000000", []float32{1, 0, 0, 0})
	idx.InsertTokens("doc-1:000000", []string{"alpha", "beta"})

	g := graph.NewStore()
	g.UpsertEntity(types.NewEntity(types.EntityTypePerson, "Anna", 0.6), "doc-1")

	return &Snapshot{
		Index: idx.Export(),
		Graph: g.Export(),
		Documents: []*types.Document{
			{ID: "doc-1", SourceURI: "file:///a.txt", Content: "alpha beta", ContentHash: types.HashContent("alpha beta")},
		},
		Chunks: []*types.Chunk{
			{ID: "doc-1:000000", DocumentID: "doc-1", Ordinal: 0, Text: "alpha beta", TokenCount: 2},
		},
	}
}

func TestLoadBeforeSave(t *testing.T) {
	s := openTestStore(t)
	_, _, err := s.Load()
	assert.ErrorIs(t, err, ErrNoSnapshot)
	_, err = s.Version()
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)

	version, err := s.Save(sampleSnapshot())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), version)

	snap, loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, version, loaded)

	require.NotNil(t, snap.Index)
	assert.Equal(t, 4, snap.Index.Dim)
	assert.Contains(t, snap.Index.Vectors, "doc-1:000000")
	assert.Contains(t, snap.Index.Tokens, "doc-1:000000")

	require.NotNil(t, snap.Graph)
	require.Len(t, snap.Graph.Nodes, 1)
	assert.Equal(t, "person:anna", snap.Graph.Nodes[0].ID)

	require.Len(t, snap.Documents, 1)
	require.Len(t, snap.Chunks, 1)
	assert.Equal(t, "doc-1", snap.Documents[0].ID)
}

func TestSaveBumpsVersionMonotonically(t *testing.T) {
	s := openTestStore(t)

	for want := uint64(1); want <= 4; want++ {
		got, err := s.Save(sampleSnapshot())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	version, err := s.Version()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), version)

	// The newest generation stays readable after older ones are pruned.
	_, loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), loaded)
}

func TestRestoredStateIsUsable(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Save(sampleSnapshot())
	require.NoError(t, err)

	snap, _, err := s.Load()
	require.NoError(t, err)

	idx := index.NewManagerFromState(snap.Index)
	idx.Rebuild()
	reader, err := idx.Snapshot()
	require.NoError(t, err)
	hits := reader.Keyword.Search([]string{"alpha"}, 5)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc-1:000000", hits[0].ChunkID)

	g := graph.NewStoreFromState(snap.Graph)
	nodes, _ := g.Counts()
	assert.Equal(t, 1, nodes)
}
