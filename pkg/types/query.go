package types

import (
	"fmt"
	"sort"
	"strings"
)

// QueryKind identifies one of the closed set of graph query modes. Using a
// dedicated type (rather than dispatching on raw strings) lets the query
// engine switch exhaustively and makes adding a mode a compile-time change.
type QueryKind int

const (
	QueryEntities QueryKind = iota
	QueryRelations
	QueryPath
	QuerySubgraph
	QueryStatistics
)

// String returns the wire name of the query kind.
func (k QueryKind) String() string {
	switch k {
	case QueryEntities:
		return "entities"
	case QueryRelations:
		return "relations"
	case QueryPath:
		return "path"
	case QuerySubgraph:
		return "subgraph"
	case QueryStatistics:
		return "statistics"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// ParseQueryKind maps a wire name onto a QueryKind. Unrecognized names yield
// an InvalidQueryTypeError, which the HTTP layer surfaces as a client error.
func ParseQueryKind(s string) (QueryKind, error) {
	switch s {
	case "entities":
		return QueryEntities, nil
	case "relations":
		return QueryRelations, nil
	case "path":
		return QueryPath, nil
	case "subgraph":
		return QuerySubgraph, nil
	case "statistics":
		return QueryStatistics, nil
	default:
		return 0, &InvalidQueryTypeError{Value: s}
	}
}

// GraphQuery describes a single query against the knowledge graph. Only the
// fields relevant to Kind are consulted; the rest stay zero.
type GraphQuery struct {
	Kind QueryKind `json:"query_type"`

	// entities mode
	EntityType   string `json:"type,omitempty"`
	ValuePattern string `json:"value_pattern,omitempty"`

	// relations / path / subgraph modes
	Source       string `json:"source,omitempty"`
	Target       string `json:"target,omitempty"`
	RelationType string `json:"relation_type,omitempty"`

	// path / subgraph modes
	MaxDepth int `json:"max_depth,omitempty"`

	// shared pagination / truncation bound
	Limit int `json:"limit,omitempty"`
}

// CacheKey renders the query as a canonical string: the kind followed by the
// set parameters in sorted order. Two equivalent queries built from
// differently-ordered filter sets produce identical keys.
func (q *GraphQuery) CacheKey() string {
	params := make([]string, 0, 7)
	add := func(name, value string) {
		if value != "" {
			params = append(params, name+"="+value)
		}
	}
	add("type", q.EntityType)
	add("value_pattern", q.ValuePattern)
	add("source", q.Source)
	add("target", q.Target)
	add("relation_type", q.RelationType)
	if q.MaxDepth > 0 {
		add("max_depth", fmt.Sprintf("%d", q.MaxDepth))
	}
	if q.Limit > 0 {
		add("limit", fmt.Sprintf("%d", q.Limit))
	}
	sort.Strings(params)
	return q.Kind.String() + "?" + strings.Join(params, "&")
}

// EntityResult pairs an entity with its computed degree (number of incident
// edges) for the entities query mode.
type EntityResult struct {
	*Entity
	Degree int `json:"degree"`
}

// PathResult is the outcome of a path query. A missing path is a normal
// result, not an error: Found is false and the slices are empty.
type PathResult struct {
	Found     bool        `json:"found"`
	Nodes     []*Entity   `json:"nodes,omitempty"`
	Relations []*Relation `json:"relations,omitempty"`
	Length    int         `json:"length"`
}

// SubgraphResult is a bounded neighborhood extracted around a source node.
type SubgraphResult struct {
	Nodes     []*Entity   `json:"nodes"`
	Relations []*Relation `json:"relations"`
	// Truncated is true when the node limit fired before the depth bound.
	Truncated bool `json:"truncated,omitempty"`
}

// GraphStats aggregates store-wide counts for the statistics query mode.
type GraphStats struct {
	NodeCount     int            `json:"total_nodes"`
	EdgeCount     int            `json:"total_edges"`
	AverageDegree float64        `json:"average_degree"`
	NodesByType   map[string]int `json:"nodes_by_type"`
}

// GraphResult is the tagged result union for kg queries; exactly one field
// matching the query kind is populated.
type GraphResult struct {
	Entities   []*EntityResult `json:"results,omitempty"`
	Relations  []*Relation     `json:"relations,omitempty"`
	Path       *PathResult     `json:"path,omitempty"`
	Subgraph   *SubgraphResult `json:"subgraph,omitempty"`
	Statistics *GraphStats     `json:"statistics,omitempty"`
}
