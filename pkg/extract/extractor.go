// Package extract runs pluggable pattern extractors over chunk text to emit
// typed entities and relations for the knowledge graph. Extractors register
// on a Registry and run independently per chunk; a panicking pattern is
// recovered and skipped, never aborting ingestion. Outputs are merged and
// deduplicated by content-derived identity before graph insertion.
package extract

import (
	"log/slog"
	"sort"

	"github.com/graphein/graphein/pkg/types"
	"github.com/graphein/graphein/pkg/utils"
)

// Mention is one occurrence of an entity in a chunk, with byte offsets kept
// for proximity-based relation strength.
type Mention struct {
	Entity *types.Entity
	Start  int
	End    int
}

// EntityExtractor finds entity mentions in raw text. Implementations
// validate their own matches before emitting them.
type EntityExtractor interface {
	Name() string
	ExtractEntities(text string) []Mention
}

// RelationExtractor derives relations from text and the entity mentions
// found so far. It may also introduce new endpoint mentions (the explicit
// pattern extractor emits the person and organization it matched).
type RelationExtractor interface {
	Name() string
	ExtractRelations(text string, mentions []Mention) ([]Mention, []*types.Relation)
}

// Result is the merged, deduplicated extraction output for one chunk.
type Result struct {
	Entities  []*types.Entity
	Relations []*types.Relation
}

// Registry holds the extractor set. Relation extractors run after entity
// extractors, in registration order, each seeing mentions accumulated so
// far — so the co-occurrence extractor pairs up endpoints introduced by the
// explicit-pattern extractor.
type Registry struct {
	entities  []EntityExtractor
	relations []RelationExtractor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry wires the full built-in extractor set.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewEmailExtractor())
	r.Register(NewURLExtractor())
	r.Register(NewPhoneExtractor())
	r.Register(NewIPExtractor())
	r.Register(NewDateExtractor())
	r.RegisterRelation(NewExplicitPatternExtractor())
	r.RegisterRelation(NewCooccurrenceExtractor())
	return r
}

// Register adds an entity extractor.
func (r *Registry) Register(e EntityExtractor) {
	r.entities = append(r.entities, e)
}

// RegisterRelation adds a relation extractor.
func (r *Registry) RegisterRelation(e RelationExtractor) {
	r.relations = append(r.relations, e)
}

// Run executes every extractor against the chunk and merges the output.
// Entity dedup keeps the highest confidence per identity and counts
// occurrences; relation dedup keeps the strongest instance per
// (source, target, type). Evidence is stamped with the chunk ID.
func (r *Registry) Run(chunk *types.Chunk) *Result {
	var mentions []Mention
	for _, e := range r.entities {
		found, err := runEntityExtractor(e, chunk.Text)
		if err != nil {
			slog.Warn("entity extractor failed, skipping", "extractor", e.Name(), "chunk", chunk.ID, "error", err)
			continue
		}
		mentions = append(mentions, found...)
	}

	var relations []*types.Relation
	for _, e := range r.relations {
		extra, found, err := runRelationExtractor(e, chunk.Text, mentions)
		if err != nil {
			slog.Warn("relation extractor failed, skipping", "extractor", e.Name(), "chunk", chunk.ID, "error", err)
			continue
		}
		mentions = append(mentions, extra...)
		relations = append(relations, found...)
	}

	return mergeResult(chunk.ID, mentions, relations)
}

func runEntityExtractor(e EntityExtractor, text string) (mentions []Mention, err error) {
	defer utils.RecoverAsError(&err)
	mentions = e.ExtractEntities(text)
	return mentions, nil
}

func runRelationExtractor(e RelationExtractor, text string, mentions []Mention) (extra []Mention, relations []*types.Relation, err error) {
	defer utils.RecoverAsError(&err)
	extra, relations = e.ExtractRelations(text, mentions)
	return extra, relations, nil
}

func mergeResult(chunkID string, mentions []Mention, relations []*types.Relation) *Result {
	entities := make(map[string]*types.Entity)
	occurrences := make(map[string]int)
	for _, m := range mentions {
		id := m.Entity.ID
		occurrences[id]++
		existing, ok := entities[id]
		if !ok {
			clone := *m.Entity
			entities[id] = &clone
			continue
		}
		if m.Entity.Confidence > existing.Confidence {
			existing.Confidence = m.Entity.Confidence
		}
	}

	merged := make(map[string]*types.Relation)
	for _, rel := range relations {
		// Drop relations whose endpoints were filtered out.
		if _, ok := entities[rel.SourceID]; !ok {
			continue
		}
		if _, ok := entities[rel.TargetID]; !ok {
			continue
		}
		existing, ok := merged[rel.ID]
		if !ok {
			clone := *rel
			clone.EvidenceChunks = []string{chunkID}
			merged[rel.ID] = &clone
			continue
		}
		if rel.Strength > existing.Strength {
			existing.Strength = rel.Strength
		}
	}

	result := &Result{}
	ids := make([]string, 0, len(entities))
	for id := range entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		ent := entities[id]
		ent.OccurrenceCount = occurrences[id]
		result.Entities = append(result.Entities, ent)
	}

	relIDs := make([]string, 0, len(merged))
	for id := range merged {
		relIDs = append(relIDs, id)
	}
	sort.Strings(relIDs)
	for _, id := range relIDs {
		result.Relations = append(result.Relations, merged[id])
	}
	return result
}
