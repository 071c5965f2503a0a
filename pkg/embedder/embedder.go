// Package embedder abstracts the text-embedding capability. The engine only
// needs embed(text) -> vector and the fixed output dimension; providers are
// interchangeable behind the Client interface. A circuit-breaker wrapper
// turns a flapping provider into a clean ErrModelUnavailable so search can
// degrade to keyword-only instead of failing requests.
package embedder

import (
	"context"
	"errors"
)

// ErrNoEmbeddings is returned when a provider responds without vectors.
var ErrNoEmbeddings = errors.New("provider returned no embeddings")

// Client generates embeddings for text.
type Client interface {
	// Embed returns one vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle embeds one text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Dimensions reports the fixed embedding dimension.
	Dimensions() int
}

// Config holds provider-independent embedding settings.
type Config struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
}
