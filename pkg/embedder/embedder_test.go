package embedder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphein/graphein/pkg/types"
)

func TestMockClientDeterministic(t *testing.T) {
	m := NewMockClient(32)

	a, err := m.EmbedSingle(context.Background(), "hello world")
	require.NoError(t, err)
	b, err := m.EmbedSingle(context.Background(), "hello world")
	require.NoError(t, err)
	c, err := m.EmbedSingle(context.Background(), "something else")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32)
	assert.Equal(t, 32, m.Dimensions())
	assert.Equal(t, 3, m.CallCount())
}

func TestMockClientBatchOrder(t *testing.T) {
	m := NewMockClient(16)
	vectors, err := m.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)

	single, err := m.EmbedSingle(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, single, vectors[1])
}

func TestBreakerTripsToModelUnavailable(t *testing.T) {
	failing := NewMockClient(8)
	failing.EmbedFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("connection refused")
	}

	cfg := DefaultBreakerConfig()
	cfg.Timeout = time.Hour // keep the breaker open for the whole test
	client := NewBreakerClient(failing, cfg)

	// Feed failures until the breaker trips.
	for i := 0; i < 5; i++ {
		_, err := client.Embed(context.Background(), []string{"x"})
		require.Error(t, err)
	}

	_, err := client.Embed(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, types.ErrModelUnavailable)
}

func TestBreakerPassesThroughOnSuccess(t *testing.T) {
	client := NewBreakerClient(NewMockClient(8), DefaultBreakerConfig())

	vec, err := client.EmbedSingle(context.Background(), "fine")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
	assert.Equal(t, 8, client.Dimensions())
}
