package dto

const (
	// MaxTextBytes bounds inline document bodies to keep request sizes sane.
	MaxTextBytes = 10 << 20

	// MaxSourceURILen bounds the source identifier.
	MaxSourceURILen = 2048
)

// IngestRequest is the body of POST /rag/ingest. Exactly one of Path and
// Text must be set; Path is resolved server-side.
type IngestRequest struct {
	SourceURI string            `json:"source_uri,omitempty"`
	Path      string            `json:"path,omitempty"`
	Text      string            `json:"text,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	SaveIndex bool              `json:"save_index,omitempty"`
}

// Validate checks structural constraints that do not require touching the
// filesystem or the engine.
func (r *IngestRequest) Validate() error {
	if r.Path == "" && r.Text == "" {
		return &ValidationError{Field: "text", Reason: "one of path or text is required"}
	}
	if r.Path != "" && r.Text != "" {
		return &ValidationError{Field: "path", Reason: "path and text are mutually exclusive"}
	}
	if r.Text != "" && r.SourceURI == "" {
		return &ValidationError{Field: "source_uri", Reason: "required when text is inline"}
	}
	if len(r.Text) > MaxTextBytes {
		return &ValidationError{Field: "text", Reason: "exceeds maximum size"}
	}
	if len(r.SourceURI) > MaxSourceURILen {
		return &ValidationError{Field: "source_uri", Reason: "exceeds maximum length"}
	}
	return nil
}

// EffectiveSourceURI is the identifier the engine dedupes on. Inline text
// must name its own source; a path request defaults to the path itself.
func (r *IngestRequest) EffectiveSourceURI() string {
	if r.SourceURI != "" {
		return r.SourceURI
	}
	return r.Path
}

// DeleteResponse is the body of DELETE /rag/documents/:id.
type DeleteResponse struct {
	DocumentID string `json:"document_id"`
	Deleted    bool   `json:"deleted"`
}
