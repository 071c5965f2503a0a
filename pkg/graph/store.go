// Package graph holds the knowledge-graph store and its query engine.
// Nodes and edges carry content-derived identities, so inserting the same
// entity or relation twice merges evidence instead of duplicating state.
package graph

import (
	"sort"
	"sync"
	"time"

	"github.com/graphein/graphein/pkg/types"
)

type idSet map[string]struct{}

// Store is an in-memory graph with secondary indices kept incrementally
// consistent on every write. A single coarse RWMutex guards all state;
// traversal bounds in the query engine cap worst-case hold time.
type Store struct {
	mu sync.RWMutex

	nodes map[string]*types.Entity
	edges map[string]*types.Relation

	// secondary indices: entity IDs by type, relation IDs by endpoint and type
	byType     map[types.EntityType]idSet
	bySource   map[string]idSet
	byTarget   map[string]idSet
	byRelation map[types.RelationType]idSet

	// version increments on every mutation; the query cache treats a bump
	// as coarse invalidation of everything it holds.
	version uint64
}

func NewStore() *Store {
	return &Store{
		nodes:      make(map[string]*types.Entity),
		edges:      make(map[string]*types.Relation),
		byType:     make(map[types.EntityType]idSet),
		bySource:   make(map[string]idSet),
		byTarget:   make(map[string]idSet),
		byRelation: make(map[types.RelationType]idSet),
	}
}

// Version reports the current write version.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// UpsertEntity merges an extracted entity into the store and records the
// originating document. It reports whether a new node was created.
func (s *Store) UpsertEntity(ent *types.Entity, docID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++

	existing, ok := s.nodes[ent.ID]
	if !ok {
		clone := *ent
		if clone.FirstSeenAt.IsZero() {
			clone.FirstSeenAt = time.Now().UTC()
		}
		clone.SourceDocIDs = addToSet(nil, docID)
		s.nodes[ent.ID] = &clone
		indexAdd(s.byType, clone.Type, clone.ID)
		return true
	}

	existing.OccurrenceCount += ent.OccurrenceCount
	if ent.Confidence > existing.Confidence {
		existing.Confidence = ent.Confidence
	}
	existing.SourceDocIDs = addToSet(existing.SourceDocIDs, docID)
	return false
}

// UpsertRelation merges an extracted relation into the store. Both endpoint
// nodes must already exist; a dangling edge is silently dropped and reported
// as not created. Repeated evidence reinforces strength monotonically.
func (s *Store) UpsertRelation(rel *types.Relation, docID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++

	if _, ok := s.nodes[rel.SourceID]; !ok {
		return false
	}
	if _, ok := s.nodes[rel.TargetID]; !ok {
		return false
	}

	existing, ok := s.edges[rel.ID]
	if !ok {
		clone := *rel
		if clone.ExtractedAt.IsZero() {
			clone.ExtractedAt = time.Now().UTC()
		}
		clone.EvidenceChunks = append([]string(nil), rel.EvidenceChunks...)
		clone.SourceDocIDs = addToSet(nil, docID)
		s.edges[rel.ID] = &clone
		indexAdd(s.bySource, clone.SourceID, clone.ID)
		indexAdd(s.byTarget, clone.TargetID, clone.ID)
		indexAdd(s.byRelation, clone.Type, clone.ID)
		return true
	}

	existing.Strength = types.ReinforceStrength(existing.Strength, rel.Strength)
	for _, chunk := range rel.EvidenceChunks {
		existing.EvidenceChunks = addToSet(existing.EvidenceChunks, chunk)
	}
	existing.SourceDocIDs = addToSet(existing.SourceDocIDs, docID)
	return false
}

// RemoveDocument strips a document from the provenance of every node and
// edge it touched. Nodes and edges whose last source document disappears are
// deleted, along with edges left dangling by node removal, so queries never
// surface state owned by a deleted document.
func (s *Store) RemoveDocument(docID string) (entitiesRemoved, relationsRemoved int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++

	for id, rel := range s.edges {
		rel.SourceDocIDs = removeFromSet(rel.SourceDocIDs, docID)
		if len(rel.SourceDocIDs) == 0 {
			s.deleteEdgeLocked(id)
			relationsRemoved++
		}
	}

	for id, ent := range s.nodes {
		ent.SourceDocIDs = removeFromSet(ent.SourceDocIDs, docID)
		if len(ent.SourceDocIDs) > 0 {
			continue
		}
		for edgeID := range s.bySource[id] {
			s.deleteEdgeLocked(edgeID)
			relationsRemoved++
		}
		for edgeID := range s.byTarget[id] {
			s.deleteEdgeLocked(edgeID)
			relationsRemoved++
		}
		indexRemove(s.byType, ent.Type, id)
		delete(s.nodes, id)
		entitiesRemoved++
	}
	return entitiesRemoved, relationsRemoved
}

func (s *Store) deleteEdgeLocked(id string) {
	rel, ok := s.edges[id]
	if !ok {
		return
	}
	indexRemove(s.bySource, rel.SourceID, id)
	indexRemove(s.byTarget, rel.TargetID, id)
	indexRemove(s.byRelation, rel.Type, id)
	delete(s.edges, id)
}

// Entity returns a copy of the node with the given ID.
func (s *Store) Entity(id string) (*types.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ent, ok := s.nodes[id]
	if !ok {
		return nil, false
	}
	clone := *ent
	return &clone, true
}

// Counts reports the node and edge totals.
func (s *Store) Counts() (nodes, edges int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes), len(s.edges)
}

// degreeLocked counts edges incident to a node. Callers hold at least the
// read lock.
func (s *Store) degreeLocked(id string) int {
	return len(s.bySource[id]) + len(s.byTarget[id])
}

// State is the serializable form of the store used by the persistence layer.
type State struct {
	Nodes []*types.Entity   `json:"nodes"`
	Edges []*types.Relation `json:"edges"`
	// Version preserves the write counter across restarts so cached query
	// results from a previous process cannot be mistaken for fresh ones.
	Version uint64 `json:"version"`
}

// Export captures the full store contents in deterministic order.
func (s *Store) Export() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &State{Version: s.version}
	for _, ent := range s.nodes {
		clone := *ent
		st.Nodes = append(st.Nodes, &clone)
	}
	for _, rel := range s.edges {
		clone := *rel
		st.Edges = append(st.Edges, &clone)
	}
	sort.Slice(st.Nodes, func(i, j int) bool { return st.Nodes[i].ID < st.Nodes[j].ID })
	sort.Slice(st.Edges, func(i, j int) bool { return st.Edges[i].ID < st.Edges[j].ID })
	return st
}

// NewStoreFromState rebuilds a store, including all secondary indices, from
// exported state. Edges referencing missing nodes are dropped.
func NewStoreFromState(st *State) *Store {
	s := NewStore()
	for _, ent := range st.Nodes {
		clone := *ent
		s.nodes[clone.ID] = &clone
		indexAdd(s.byType, clone.Type, clone.ID)
	}
	for _, rel := range st.Edges {
		if _, ok := s.nodes[rel.SourceID]; !ok {
			continue
		}
		if _, ok := s.nodes[rel.TargetID]; !ok {
			continue
		}
		clone := *rel
		s.edges[clone.ID] = &clone
		indexAdd(s.bySource, clone.SourceID, clone.ID)
		indexAdd(s.byTarget, clone.TargetID, clone.ID)
		indexAdd(s.byRelation, clone.Type, clone.ID)
	}
	s.version = st.Version
	return s
}

func indexAdd[K comparable](idx map[K]idSet, key K, id string) {
	set, ok := idx[key]
	if !ok {
		set = make(idSet)
		idx[key] = set
	}
	set[id] = struct{}{}
}

func indexRemove[K comparable](idx map[K]idSet, key K, id string) {
	set, ok := idx[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(idx, key)
	}
}

// addToSet appends a value to a slice treated as a set, preserving order.
func addToSet(set []string, value string) []string {
	for _, v := range set {
		if v == value {
			return set
		}
	}
	return append(set, value)
}

func removeFromSet(set []string, value string) []string {
	for i, v := range set {
		if v == value {
			return append(set[:i], set[i+1:]...)
		}
	}
	return set
}
