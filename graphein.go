package graphein

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/graphein/graphein/pkg/cache"
	"github.com/graphein/graphein/pkg/chunker"
	"github.com/graphein/graphein/pkg/embedder"
	"github.com/graphein/graphein/pkg/extract"
	"github.com/graphein/graphein/pkg/graph"
	"github.com/graphein/graphein/pkg/index"
	"github.com/graphein/graphein/pkg/persist"
	"github.com/graphein/graphein/pkg/rerank"
	"github.com/graphein/graphein/pkg/types"
)

// Options configures a new Engine. The zero value is usable for offline
// operation: a deterministic mock embedder, the default extractor set, and
// no persistence.
type Options struct {
	// Logger receives structured engine logs; slog.Default when nil.
	Logger *slog.Logger

	// Embedder provides the embed(text) -> vector capability. Defaults to
	// the deterministic mock client.
	Embedder embedder.Client

	// Chunker bounds passage size; zero fields take chunker defaults.
	Chunker chunker.Config

	// TokenCounter overrides the chunker's token counting.
	TokenCounter chunker.TokenCounter

	// Registry is the extractor set; extract.DefaultRegistry when nil.
	Registry *extract.Registry

	// Reranker enables second-pass reordering of search results.
	Reranker rerank.Client

	// Persist stores versioned snapshots; persistence is disabled when nil.
	Persist *persist.Store

	// CacheCapacity and CacheTTL bound the query cache.
	CacheCapacity int
	CacheTTL      time.Duration

	// EmbedWorkers bounds the ingestion embedding pool.
	EmbedWorkers int

	// DefaultAlpha and DefaultTopK apply when a search request leaves them
	// unset.
	DefaultAlpha float64
	DefaultTopK  int
}

// Engine is the retrieval and knowledge-graph query engine. It owns the
// chunker, the vector and keyword indexes, the extractor registry, the
// graph store, and the query cache, and exposes ingestion, search, and
// graph-query operations on top of them.
type Engine struct {
	logger   *slog.Logger
	chunker  *chunker.Chunker
	embedder embedder.Client
	registry *extract.Registry
	reranker rerank.Client
	store    *persist.Store
	pool     *ants.Pool

	index *index.Manager
	graph *graph.Store
	cache *cache.Cache[*types.GraphResult]

	defaultAlpha float64
	defaultTopK  int

	// mu guards the document catalog and the index/graph pointers, which
	// are only replaced wholesale by LoadSnapshot at startup.
	mu        sync.RWMutex
	documents map[string]*types.Document // by document ID
	bySource  map[string]string          // source URI -> document ID
	chunks    map[string]*types.Chunk    // by chunk ID
	docChunks map[string][]string        // document ID -> chunk IDs

	modelOK bool
}

const (
	defaultEmbedWorkers = 4
	embedBatchSize      = 16
)

// New constructs an Engine from options.
func New(opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := opts.Embedder
	if client == nil {
		client = embedder.NewMockClient(0)
	}
	if client.Dimensions() <= 0 {
		return nil, fmt.Errorf("embedder reports dimension %d", client.Dimensions())
	}

	chunkCfg := opts.Chunker
	if chunkCfg.MaxTokens <= 0 {
		chunkCfg.MaxTokens = 400
		if chunkCfg.OverlapTokens <= 0 {
			chunkCfg.OverlapTokens = 40
		}
	}
	var chunkerOpts []chunker.Option
	if opts.TokenCounter != nil {
		chunkerOpts = append(chunkerOpts, chunker.WithTokenCounter(opts.TokenCounter))
	}
	chk, err := chunker.New(chunkCfg, chunkerOpts...)
	if err != nil {
		return nil, fmt.Errorf("configure chunker: %w", err)
	}

	registry := opts.Registry
	if registry == nil {
		registry = extract.DefaultRegistry()
	}

	workers := opts.EmbedWorkers
	if workers <= 0 {
		workers = defaultEmbedWorkers
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create embed pool: %w", err)
	}

	topK := opts.DefaultTopK
	if topK <= 0 {
		topK = 10
	}
	alpha := opts.DefaultAlpha
	if alpha <= 0 || alpha > 1 {
		alpha = 0.5
	}

	return &Engine{
		logger:       logger,
		chunker:      chk,
		embedder:     client,
		registry:     registry,
		reranker:     opts.Reranker,
		store:        opts.Persist,
		pool:         pool,
		index:        index.NewManager(client.Dimensions()),
		graph:        graph.NewStore(),
		cache:        cache.New[*types.GraphResult](opts.CacheCapacity, opts.CacheTTL),
		defaultAlpha: alpha,
		defaultTopK:  topK,
		documents:    make(map[string]*types.Document),
		bySource:     make(map[string]string),
		chunks:       make(map[string]*types.Chunk),
		docChunks:    make(map[string][]string),
		modelOK:      true,
	}, nil
}

// Close releases the worker pool and the snapshot store.
func (e *Engine) Close() error {
	e.pool.Release()
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// SaveSnapshot persists the full engine state as a new snapshot generation
// and returns its version.
func (e *Engine) SaveSnapshot() (uint64, error) {
	if e.store == nil {
		return 0, errors.New("no snapshot store configured")
	}

	e.mu.RLock()
	snap := &persist.Snapshot{
		Index:     e.index.Export(),
		Graph:     e.graph.Export(),
		Documents: make([]*types.Document, 0, len(e.documents)),
		Chunks:    make([]*types.Chunk, 0, len(e.chunks)),
	}
	for _, doc := range e.documents {
		clone := *doc
		snap.Documents = append(snap.Documents, &clone)
	}
	for _, chunk := range e.chunks {
		clone := *chunk
		snap.Chunks = append(snap.Chunks, &clone)
	}
	e.mu.RUnlock()

	version, err := e.store.Save(snap)
	if err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	e.logger.Info("snapshot saved", "version", version, "documents", len(snap.Documents), "chunks", len(snap.Chunks))
	return version, nil
}

// LoadSnapshot restores engine state from the latest persisted snapshot.
// Intended for startup, before the engine starts serving requests. A store
// with no snapshot yet leaves the engine empty and returns no error.
func (e *Engine) LoadSnapshot() error {
	if e.store == nil {
		return errors.New("no snapshot store configured")
	}

	snap, version, err := e.store.Load()
	if errors.Is(err, persist.ErrNoSnapshot) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if snap.Index != nil && snap.Index.Dim != e.embedder.Dimensions() {
		return &types.DimensionMismatchError{Want: e.embedder.Dimensions(), Got: snap.Index.Dim}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.index = index.NewManagerFromState(snap.Index)
	e.graph = graph.NewStoreFromState(snap.Graph)
	e.documents = make(map[string]*types.Document, len(snap.Documents))
	e.bySource = make(map[string]string, len(snap.Documents))
	e.chunks = make(map[string]*types.Chunk, len(snap.Chunks))
	e.docChunks = make(map[string][]string)
	for _, doc := range snap.Documents {
		e.documents[doc.ID] = doc
		e.bySource[doc.SourceURI] = doc.ID
	}
	for _, chunk := range snap.Chunks {
		e.chunks[chunk.ID] = chunk
		e.docChunks[chunk.DocumentID] = append(e.docChunks[chunk.DocumentID], chunk.ID)
	}
	e.cache.Invalidate()

	e.logger.Info("snapshot restored", "version", version, "documents", len(snap.Documents), "chunks", len(snap.Chunks))
	return nil
}
