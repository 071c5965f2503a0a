// Package types defines the core data model shared by every graphein
// subsystem: documents and their chunks, knowledge-graph entities and
// relations, graph query descriptors, and the error taxonomy surfaced
// through the engine's public API.
//
// Types here are plain data carriers with validation helpers. They carry no
// behavior beyond identity derivation and canonicalization, so every other
// package can depend on them without cycles.
package types
