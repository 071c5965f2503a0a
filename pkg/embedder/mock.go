package embedder

import (
	"context"
	"hash/fnv"
)

// MockClient is a deterministic embedder for tests and offline operation.
// The same text always produces the same vector; custom behavior can be
// injected through the function fields.
type MockClient struct {
	// EmbedFunc overrides Embed when set.
	EmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

	Dim       int
	callCount int
}

// NewMockClient returns a mock embedder with the given dimension
// (default 64).
func NewMockClient(dim int) *MockClient {
	if dim <= 0 {
		dim = 64
	}
	return &MockClient{Dim: dim}
}

func (m *MockClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.callCount++
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, texts)
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = deterministicVector(text, m.Dim)
	}
	return vectors, nil
}

func (m *MockClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, ErrNoEmbeddings
	}
	return vectors[0], nil
}

func (m *MockClient) Dimensions() int {
	return m.Dim
}

// CallCount returns how many times Embed was invoked.
func (m *MockClient) CallCount() int {
	return m.callCount
}

// deterministicVector derives a pseudo-random but stable vector from the
// FNV hash of the text, stepped with LCG constants.
func deterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223
		vector[i] = float32(seed%2000)/1000.0 - 1.0
	}
	return vector
}
