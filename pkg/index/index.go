// Package index implements the searchable side of the engine: a flat
// cosine-similarity vector index, a BM25 inverted keyword index, and the
// hybrid scorer fusing both. All reads go through an immutable, versioned
// Snapshot held behind a single atomically-swapped pointer; Rebuild
// constructs the next snapshot off the hot path and swaps it in, so a query
// never observes a partially-rebuilt index.
package index

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/graphein/graphein/pkg/types"
)

// Hit is one scored chunk in a ranked result.
type Hit struct {
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
}

// hitWorse orders hits for top-K selection: lower score ranks below, equal
// scores rank the lexicographically larger chunk ID below. The inverse
// ordering of the ranked output, which wants descending score with smaller
// IDs first on ties.
func hitWorse(a, b Hit) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.ChunkID > b.ChunkID
}

// Manager owns the mutable staging state (inserted vectors and token lists)
// and the current read snapshot. Inserts touch staging only; readers are
// served exclusively from the snapshot.
type Manager struct {
	dim int

	mu      sync.Mutex
	vectors map[string][]float32
	tokens  map[string][]string
	version uint64

	snap atomic.Pointer[Snapshot]
}

// NewManager creates an index manager with a fixed vector dimension.
func NewManager(dim int) *Manager {
	return &Manager{
		dim:     dim,
		vectors: make(map[string][]float32),
		tokens:  make(map[string][]string),
	}
}

// Dimensions returns the vector dimension fixed at creation time.
func (m *Manager) Dimensions() int {
	return m.dim
}

// InsertVector stages a chunk embedding. Vectors are L2-normalized at
// insert time so snapshot search reduces to an inner product. A vector of
// the wrong dimension is a hard error and nothing is staged.
func (m *Manager) InsertVector(chunkID string, vector []float32) error {
	if len(vector) != m.dim {
		return &types.DimensionMismatchError{Want: m.dim, Got: len(vector)}
	}
	normalized := normalizeOrNil(vector)
	m.mu.Lock()
	defer m.mu.Unlock()
	if normalized != nil {
		m.vectors[chunkID] = normalized
	}
	return nil
}

// InsertTokens stages a chunk's token list for keyword scoring.
func (m *Manager) InsertTokens(chunkID string, tokens []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[chunkID] = tokens
}

// Remove drops a chunk from staging. The change becomes visible to readers
// at the next Rebuild.
func (m *Manager) Remove(chunkIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range chunkIDs {
		delete(m.vectors, id)
		delete(m.tokens, id)
	}
}

// Rebuild constructs a new immutable snapshot from the staged state and
// atomically publishes it. In-flight reads continue against the snapshot
// they started with.
func (m *Manager) Rebuild() *Snapshot {
	m.mu.Lock()
	m.version++
	snap := &Snapshot{
		Version: m.version,
		Vector:  buildVectorSnapshot(m.dim, m.vectors),
		Keyword: buildKeywordSnapshot(m.tokens),
	}
	m.mu.Unlock()

	m.snap.Store(snap)
	return snap
}

// Snapshot returns the current read snapshot, or ErrIndexNotReady before
// the first Rebuild.
func (m *Manager) Snapshot() (*Snapshot, error) {
	snap := m.snap.Load()
	if snap == nil {
		return nil, types.ErrIndexNotReady
	}
	return snap, nil
}

// State is the serializable staging state used by the persistence layer.
type State struct {
	Dim     int
	Version uint64
	Vectors map[string][]float32
	Tokens  map[string][]string
}

// Export copies the staging state for persistence.
func (m *Manager) Export() *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := &State{
		Dim:     m.dim,
		Version: m.version,
		Vectors: make(map[string][]float32, len(m.vectors)),
		Tokens:  make(map[string][]string, len(m.tokens)),
	}
	for id, v := range m.vectors {
		state.Vectors[id] = append([]float32(nil), v...)
	}
	for id, toks := range m.tokens {
		state.Tokens[id] = append([]string(nil), toks...)
	}
	return state
}

// NewManagerFromState restores a manager from persisted state and publishes
// an initial snapshot.
func NewManagerFromState(state *State) *Manager {
	m := &Manager{
		dim:     state.Dim,
		vectors: state.Vectors,
		tokens:  state.Tokens,
		version: state.Version,
	}
	if m.vectors == nil {
		m.vectors = make(map[string][]float32)
	}
	if m.tokens == nil {
		m.tokens = make(map[string][]string)
	}
	m.Rebuild()
	return m
}

// Snapshot is an immutable, versioned bundle of the vector and keyword
// indexes.
type Snapshot struct {
	Version uint64
	Vector  *VectorSnapshot
	Keyword *KeywordSnapshot
}

// Docs reports the number of distinct chunks visible in this snapshot.
func (s *Snapshot) Docs() int {
	seen := make(map[string]struct{}, len(s.Vector.ids)+len(s.Keyword.ids))
	for _, id := range s.Vector.ids {
		seen[id] = struct{}{}
	}
	for _, id := range s.Keyword.ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}

// sortHits orders hits descending by score with the deterministic ID
// tie-break.
func sortHits(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
}
