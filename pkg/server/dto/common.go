// Package dto defines the request and response bodies of the HTTP API,
// including their validation rules. Handlers decode into these types before
// touching the engine so that malformed input fails at the edge.
package dto

import "fmt"

// ErrorResponse is the uniform error body returned by every endpoint.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// ValidationError reports a request field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}
