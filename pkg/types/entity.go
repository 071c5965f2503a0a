package types

import (
	"strings"
	"time"
)

// EntityType classifies a knowledge-graph node.
type EntityType string

const (
	EntityTypeEmail EntityType = "email"
	EntityTypeURL   EntityType = "url"
	EntityTypePhone EntityType = "phone"
	EntityTypeIP    EntityType = "ip"
	EntityTypeDate  EntityType = "date"
	// EntityTypePerson covers capitalized name mentions found near
	// explicit relation patterns.
	EntityTypePerson EntityType = "person"
	// EntityTypeOrg covers organization mentions found by the explicit
	// pattern extractor ("works at Example Corp").
	EntityTypeOrg EntityType = "org"
	// EntityTypePlace covers location mentions from "located in" patterns.
	EntityTypePlace EntityType = "place"
)

// RelationType classifies a knowledge-graph edge.
type RelationType string

const (
	RelationCooccurrence RelationType = "cooccurrence"
	RelationWorksAt      RelationType = "works_at"
	RelationLocatedIn    RelationType = "located_in"
	RelationEmailed      RelationType = "emailed"
	RelationOwns         RelationType = "owns"
)

// Entity is a typed, deduplicated knowledge-graph node. Identity is derived
// from (type, normalized value), never random, so re-ingestion is idempotent.
type Entity struct {
	ID              string     `json:"id"`
	Type            EntityType `json:"type"`
	Value           string     `json:"value"`
	Normalized      string     `json:"normalized"`
	Confidence      float64    `json:"confidence"`
	FirstSeenAt     time.Time  `json:"first_seen_at"`
	OccurrenceCount int        `json:"occurrence_count"`
	// SourceDocIDs tracks the documents this entity was extracted from.
	// The store drops the entity once its last source document is removed.
	SourceDocIDs []string `json:"source_doc_ids,omitempty"`
}

// NormalizeValue canonicalizes an entity value for identity derivation.
// Case folding plus whitespace trimming; entity-specific extractors perform
// any further normalization (e.g. stripping phone punctuation) before
// constructing the entity.
func NormalizeValue(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// EntityID derives the content-based identifier for an entity.
func EntityID(entityType EntityType, normalized string) string {
	return string(entityType) + ":" + normalized
}

// NewEntity constructs an entity with derived identity.
func NewEntity(entityType EntityType, value string, confidence float64) *Entity {
	normalized := NormalizeValue(value)
	return &Entity{
		ID:              EntityID(entityType, normalized),
		Type:            entityType,
		Value:           value,
		Normalized:      normalized,
		Confidence:      confidence,
		OccurrenceCount: 1,
	}
}

// Relation is a typed, strength-weighted edge between two entities with
// supporting evidence. Relations are deduplicated on
// (source, target, relation type); repeated evidence raises Strength
// monotonically toward 1.0 and extends the evidence set.
type Relation struct {
	ID             string       `json:"id"`
	SourceID       string       `json:"source_entity_id"`
	TargetID       string       `json:"target_entity_id"`
	Type           RelationType `json:"relation_type"`
	Strength       float64      `json:"strength"`
	EvidenceChunks []string     `json:"evidence_chunk_ids,omitempty"`
	SourceDocIDs   []string     `json:"source_doc_ids,omitempty"`
	ExtractedAt    time.Time    `json:"extracted_at"`
}

// RelationID derives the content-based identifier for a relation.
func RelationID(sourceID, targetID string, relationType RelationType) string {
	return sourceID + "|" + string(relationType) + "|" + targetID
}

// NewRelation constructs a relation with derived identity.
func NewRelation(sourceID, targetID string, relationType RelationType, strength float64) *Relation {
	if strength > 1.0 {
		strength = 1.0
	}
	if strength < 0 {
		strength = 0
	}
	return &Relation{
		ID:       RelationID(sourceID, targetID, relationType),
		SourceID: sourceID,
		TargetID: targetID,
		Type:     relationType,
		Strength: strength,
	}
}

// ReinforceStrength applies one round of additional evidence to a strength
// value. The update rule s' = 1 - (1-s)*(1-increment) is monotone
// non-decreasing and bounded by 1.0.
func ReinforceStrength(strength, increment float64) float64 {
	if increment < 0 {
		increment = 0
	}
	if increment > 1 {
		increment = 1
	}
	updated := 1 - (1-strength)*(1-increment)
	if updated > 1 {
		updated = 1
	}
	return updated
}
