package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validation errors
var (
	ErrEmptyContent   = errors.New("content cannot be empty")
	ErrEmptyID        = errors.New("id cannot be empty")
	ErrEmptySourceURI = errors.New("source_uri cannot be empty")
	ErrInvalidLimit   = errors.New("limit must be positive")
)

// Document is an ingested source text. Documents are immutable once stored;
// re-ingesting the same source URI with different content supersedes the old
// document rather than mutating it.
type Document struct {
	ID          string            `json:"id"`
	SourceURI   string            `json:"source_uri"`
	Content     string            `json:"raw_text"`
	ContentHash string            `json:"content_hash"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	IngestedAt  time.Time         `json:"ingested_at"`
}

// Validate checks that the Document carries the fields ingestion requires.
// Whitespace-only content counts as empty: it cannot produce a chunk, so
// accepting it would store a document the indexes never see.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.Content) == "" {
		return ErrEmptyContent
	}
	if d.SourceURI == "" {
		return ErrEmptySourceURI
	}
	return nil
}

// HashContent returns the hex SHA-256 digest used for idempotency checks.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Chunk is a bounded, contiguous passage of a document's text and the unit
// of indexing. Chunks are never mutated after creation and are removed only
// when their owning document is removed.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Ordinal    int    `json:"ordinal"`
	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`
}

// ChunkID derives the stable identifier for a chunk. The zero-padded ordinal
// keeps lexicographic order aligned with document order, which the indexes
// rely on for deterministic tie-breaking.
func ChunkID(documentID string, ordinal int) string {
	return fmt.Sprintf("%s:%06d", documentID, ordinal)
}

// IngestResult summarizes a single ingestion call.
type IngestResult struct {
	DocumentID        string   `json:"document_id"`
	ChunksCreated     int      `json:"chunks_created"`
	EntitiesCreated   int      `json:"entities_created"`
	EntitiesUpdated   int      `json:"entities_updated"`
	RelationsCreated  int      `json:"relations_created"`
	EmbeddingsSkipped int      `json:"embeddings_skipped,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
	// Duplicate is true when the document was already ingested with
	// identical content; all counts are zero in that case.
	Duplicate bool `json:"duplicate,omitempty"`
}
