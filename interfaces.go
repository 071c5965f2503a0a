package graphein

import (
	"context"

	"github.com/graphein/graphein/pkg/types"
)

// Focused interfaces for consumers that need only part of the engine.
// The Service interface composes them; depend on the smallest one that
// covers your needs.

// Ingestor manages the document lifecycle.
type Ingestor interface {
	// Ingest chunks, embeds, indexes, and extracts one document.
	Ingest(ctx context.Context, req IngestRequest) (*types.IngestResult, error)

	// DeleteDocument removes a document and everything derived from it.
	DeleteDocument(ctx context.Context, documentID string) (bool, error)
}

// Searcher answers retrieval queries over the indexed chunks.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// GraphQuerier answers read-only knowledge-graph queries.
type GraphQuerier interface {
	KGQuery(ctx context.Context, q *types.GraphQuery) (*types.GraphResult, bool, error)
	GraphSnapshot(ctx context.Context, sampleSize int) (*SnapshotPreview, error)
}

// Admin covers operational concerns: health introspection and persistence.
type Admin interface {
	Info() *IndexInfo
	SaveSnapshot() (uint64, error)
	LoadSnapshot() error
	Close() error
}

// Service is the full engine surface, composed from the focused interfaces.
type Service interface {
	Ingestor
	Searcher
	GraphQuerier
	Admin
}

var _ Service = (*Engine)(nil)
