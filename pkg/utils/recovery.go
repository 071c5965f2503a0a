package utils

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// PanicError wraps a recovered panic value as an error.
type PanicError struct {
	Value      any
	StackTrace string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// RecoverAsError recovers from a panic and stores it in errPtr. Call it with
// defer at the top of a function whose error return is named:
//
//	func run() (err error) {
//	    defer utils.RecoverAsError(&err)
//	    ...
//	}
//
// A single misbehaving extractor pattern must never abort a whole ingestion,
// so extractor invocations are wrapped with this.
func RecoverAsError(errPtr *error) {
	if r := recover(); r != nil {
		stack := string(debug.Stack())
		*errPtr = &PanicError{Value: r, StackTrace: stack}
		slog.Error("recovered from panic", "panic", r, "stack", stack)
	}
}
