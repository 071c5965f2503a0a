package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntityIdentity(t *testing.T) {
	a := NewEntity(EntityTypeEmail, "Alice@Example.com", 0.9)
	b := NewEntity(EntityTypeEmail, "  alice@example.com ", 0.8)

	assert.Equal(t, a.ID, b.ID, "identity must be content-derived")
	assert.Equal(t, "email:alice@example.com", a.ID)
	assert.Equal(t, 1, a.OccurrenceCount)
}

func TestNewEntityDistinctTypes(t *testing.T) {
	a := NewEntity(EntityTypeEmail, "alice@example.com", 0.9)
	b := NewEntity(EntityTypeURL, "alice@example.com", 0.9)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestReinforceStrength(t *testing.T) {
	tests := []struct {
		name      string
		strength  float64
		increment float64
		want      float64
	}{
		{"from zero", 0.0, 0.5, 0.5},
		{"compounding", 0.5, 0.5, 0.75},
		{"full increment caps", 0.3, 1.0, 1.0},
		{"negative increment is clamped", 0.4, -0.2, 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ReinforceStrength(tt.strength, tt.increment), 1e-9)
		})
	}
}

func TestReinforceStrengthMonotone(t *testing.T) {
	s := 0.1
	for i := 0; i < 100; i++ {
		next := ReinforceStrength(s, 0.3)
		require.GreaterOrEqual(t, next, s)
		require.LessOrEqual(t, next, 1.0)
		s = next
	}
	assert.InDelta(t, 1.0, s, 1e-6)
}

func TestParseQueryKind(t *testing.T) {
	for _, name := range []string{"entities", "relations", "path", "subgraph", "statistics"} {
		kind, err := ParseQueryKind(name)
		require.NoError(t, err)
		assert.Equal(t, name, kind.String())
	}

	_, err := ParseQueryKind("neighbors")
	var invalidErr *InvalidQueryTypeError
	require.True(t, errors.As(err, &invalidErr))
	assert.Equal(t, "neighbors", invalidErr.Value)
}

func TestCacheKeyCanonical(t *testing.T) {
	a := &GraphQuery{Kind: QueryRelations, Source: "s", Target: "t", RelationType: "works_at"}
	b := &GraphQuery{Kind: QueryRelations, RelationType: "works_at", Target: "t", Source: "s"}
	assert.Equal(t, a.CacheKey(), b.CacheKey())

	c := &GraphQuery{Kind: QueryRelations, Source: "s"}
	assert.NotEqual(t, a.CacheKey(), c.CacheKey())
}

func TestCacheKeyOmitsUnsetParams(t *testing.T) {
	q := &GraphQuery{Kind: QueryStatistics}
	assert.Equal(t, "statistics?", q.CacheKey())
}

func TestChunkIDOrdering(t *testing.T) {
	// Lexicographic chunk-ID order must match ordinal order.
	assert.Less(t, ChunkID("doc", 2), ChunkID("doc", 10))
}

func TestDocumentValidate(t *testing.T) {
	doc := &Document{Content: "text", SourceURI: "file:///a.txt"}
	require.NoError(t, doc.Validate())

	assert.ErrorIs(t, (&Document{SourceURI: "x"}).Validate(), ErrEmptyContent)
	assert.ErrorIs(t, (&Document{SourceURI: "x", Content: " \n\t "}).Validate(), ErrEmptyContent)
	assert.ErrorIs(t, (&Document{Content: "x"}).Validate(), ErrEmptySourceURI)
}

func TestRelationIDDedup(t *testing.T) {
	r1 := NewRelation("a", "b", RelationWorksAt, 0.8)
	r2 := NewRelation("a", "b", RelationWorksAt, 0.2)
	assert.Equal(t, r1.ID, r2.ID)

	reversed := NewRelation("b", "a", RelationWorksAt, 0.8)
	assert.NotEqual(t, r1.ID, reversed.ID)
}
