package types

import (
	"errors"
	"fmt"
)

// Service-level errors
var (
	// ErrModelUnavailable reports that the embedding capability is not
	// ready. Hybrid and semantic search degrade to keyword-only instead of
	// failing the request.
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// ErrIndexNotReady reports a query before the first successful build.
	// Surfaced over HTTP as a retryable 503.
	ErrIndexNotReady = errors.New("index not ready")
)

// DimensionMismatchError rejects a vector insert whose length differs from
// the index dimension fixed at creation time.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: index dimension %d, vector dimension %d", e.Want, e.Got)
}

// InvalidQueryTypeError reports an unrecognized query_type value.
type InvalidQueryTypeError struct {
	Value string
}

func (e *InvalidQueryTypeError) Error() string {
	return fmt.Sprintf("invalid query type %q", e.Value)
}

// MalformedEntityIDError reports a path or subgraph query referencing an
// entity that does not exist. The offending ID is echoed back to the caller.
type MalformedEntityIDError struct {
	ID string
}

func (e *MalformedEntityIDError) Error() string {
	return fmt.Sprintf("unknown entity id %q", e.ID)
}
