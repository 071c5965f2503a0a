// Package graphein is a retrieval and knowledge-graph query engine. It
// turns ingested documents into a hybrid-searchable chunk index and a
// queryable entity/relation graph.
//
// Ingestion chunks each document, embeds the chunks, inserts them into the
// vector and keyword indexes, and runs pattern extractors whose entities
// and relations merge into the graph store by content-derived identity.
// Search fuses semantic and keyword relevance with a configurable weight
// and optionally reranks the top results. Graph queries cover entity and
// relation lookup, shortest-path finding, bounded subgraph extraction, and
// aggregate statistics, memoized by a TTL-bounded query cache.
//
// Index reads always go through an immutable versioned snapshot that is
// rebuilt off the hot path and swapped atomically, so concurrent searches
// never observe a partially built index.
package graphein
