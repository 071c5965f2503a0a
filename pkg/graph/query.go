package graph

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/graphein/graphein/pkg/types"
)

// Traversal defaults applied when the caller leaves the bound unset. Both
// keep worst-case BFS work small enough for the coarse store lock.
const (
	DefaultLimit    = 100
	DefaultMaxDepth = 5
)

// Query dispatches a graph query to its mode implementation. The switch is
// exhaustive over the QueryKind enum; an out-of-range kind (only reachable
// by constructing one directly) is reported as an invalid query type.
func (s *Store) Query(ctx context.Context, q *types.GraphQuery) (*types.GraphResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch q.Kind {
	case types.QueryEntities:
		entities, err := s.queryEntities(q)
		if err != nil {
			return nil, err
		}
		return &types.GraphResult{Entities: entities}, nil
	case types.QueryRelations:
		return &types.GraphResult{Relations: s.queryRelations(q)}, nil
	case types.QueryPath:
		path, err := s.queryPath(ctx, q)
		if err != nil {
			return nil, err
		}
		return &types.GraphResult{Path: path}, nil
	case types.QuerySubgraph:
		sub, err := s.querySubgraph(ctx, q)
		if err != nil {
			return nil, err
		}
		return &types.GraphResult{Subgraph: sub}, nil
	case types.QueryStatistics:
		return &types.GraphResult{Statistics: s.queryStatistics()}, nil
	default:
		return nil, &types.InvalidQueryTypeError{Value: q.Kind.String()}
	}
}

func (s *Store) queryEntities(q *types.GraphQuery) ([]*types.EntityResult, error) {
	var pattern *regexp.Regexp
	if q.ValuePattern != "" {
		var err error
		pattern, err = regexp.Compile(q.ValuePattern)
		if err != nil {
			return nil, fmt.Errorf("compile value_pattern: %w", err)
		}
	}

	var candidates []string
	if q.EntityType != "" {
		for id := range s.byType[types.EntityType(q.EntityType)] {
			candidates = append(candidates, id)
		}
	} else {
		for id := range s.nodes {
			candidates = append(candidates, id)
		}
	}
	sort.Strings(candidates)

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	results := make([]*types.EntityResult, 0, min(limit, len(candidates)))
	for _, id := range candidates {
		if len(results) == limit {
			break
		}
		ent := s.nodes[id]
		if pattern != nil && !pattern.MatchString(ent.Normalized) {
			continue
		}
		clone := *ent
		results = append(results, &types.EntityResult{Entity: &clone, Degree: s.degreeLocked(id)})
	}
	return results, nil
}

func (s *Store) queryRelations(q *types.GraphQuery) []*types.Relation {
	// Start from the most selective secondary index available.
	var candidates idSet
	switch {
	case q.Source != "":
		candidates = s.bySource[q.Source]
	case q.Target != "":
		candidates = s.byTarget[q.Target]
	case q.RelationType != "":
		candidates = s.byRelation[types.RelationType(q.RelationType)]
	}

	ids := make([]string, 0, len(s.edges))
	if candidates != nil {
		for id := range candidates {
			ids = append(ids, id)
		}
	} else if q.Source == "" && q.Target == "" && q.RelationType == "" {
		for id := range s.edges {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	results := make([]*types.Relation, 0, min(limit, len(ids)))
	for _, id := range ids {
		if len(results) == limit {
			break
		}
		rel := s.edges[id]
		if q.Source != "" && rel.SourceID != q.Source {
			continue
		}
		if q.Target != "" && rel.TargetID != q.Target {
			continue
		}
		if q.RelationType != "" && rel.Type != types.RelationType(q.RelationType) {
			continue
		}
		clone := *rel
		results = append(results, &clone)
	}
	return results
}

// step is one traversal move: the edge taken and the node it reached.
type step struct {
	edgeID string
	nodeID string
}

// neighborsLocked lists the undirected adjacency of a node in deterministic
// order: sorted by (relation type, neighbor ID), which makes BFS discovery
// order and therefore path tie-breaking deterministic.
func (s *Store) neighborsLocked(id string) []step {
	var steps []step
	for edgeID := range s.bySource[id] {
		steps = append(steps, step{edgeID: edgeID, nodeID: s.edges[edgeID].TargetID})
	}
	for edgeID := range s.byTarget[id] {
		steps = append(steps, step{edgeID: edgeID, nodeID: s.edges[edgeID].SourceID})
	}
	sort.Slice(steps, func(i, j int) bool {
		a, b := s.edges[steps[i].edgeID], s.edges[steps[j].edgeID]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if steps[i].nodeID != steps[j].nodeID {
			return steps[i].nodeID < steps[j].nodeID
		}
		return steps[i].edgeID < steps[j].edgeID
	})
	return steps
}

func (s *Store) queryPath(ctx context.Context, q *types.GraphQuery) (*types.PathResult, error) {
	if _, ok := s.nodes[q.Source]; !ok {
		return nil, &types.MalformedEntityIDError{ID: q.Source}
	}
	if _, ok := s.nodes[q.Target]; !ok {
		return nil, &types.MalformedEntityIDError{ID: q.Target}
	}
	maxDepth := q.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	if q.Source == q.Target {
		ent := *s.nodes[q.Source]
		return &types.PathResult{Found: true, Nodes: []*types.Entity{&ent}}, nil
	}

	parents := map[string]parentLink{q.Source: {}}
	frontier := []string{q.Source}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var next []string
		for _, id := range frontier {
			for _, st := range s.neighborsLocked(id) {
				if _, seen := parents[st.nodeID]; seen {
					continue
				}
				parents[st.nodeID] = parentLink{nodeID: id, edgeID: st.edgeID}
				if st.nodeID == q.Target {
					return s.assemblePathLocked(q.Source, q.Target, parents), nil
				}
				next = append(next, st.nodeID)
			}
		}
		frontier = next
	}
	return &types.PathResult{Found: false}, nil
}

// parentLink records how BFS first reached a node.
type parentLink struct {
	nodeID string
	edgeID string
}

func (s *Store) assemblePathLocked(source, target string, parents map[string]parentLink) *types.PathResult {
	var nodeIDs []string
	var edgeIDs []string
	for at := target; ; {
		nodeIDs = append(nodeIDs, at)
		if at == source {
			break
		}
		link := parents[at]
		edgeIDs = append(edgeIDs, link.edgeID)
		at = link.nodeID
	}

	result := &types.PathResult{Found: true, Length: len(edgeIDs)}
	for i := len(nodeIDs) - 1; i >= 0; i-- {
		ent := *s.nodes[nodeIDs[i]]
		result.Nodes = append(result.Nodes, &ent)
	}
	for i := len(edgeIDs) - 1; i >= 0; i-- {
		rel := *s.edges[edgeIDs[i]]
		result.Relations = append(result.Relations, &rel)
	}
	return result
}

func (s *Store) querySubgraph(ctx context.Context, q *types.GraphQuery) (*types.SubgraphResult, error) {
	if _, ok := s.nodes[q.Source]; !ok {
		return nil, &types.MalformedEntityIDError{ID: q.Source}
	}
	maxDepth := q.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	visited := map[string]struct{}{q.Source: {}}
	collected := []string{q.Source}
	edgeSeen := map[string]struct{}{}
	var edgeIDs []string
	truncated := false
	frontier := []string{q.Source}

	for depth := 0; depth < maxDepth && len(frontier) > 0 && !truncated; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var next []string
		for _, id := range frontier {
			for _, st := range s.neighborsLocked(id) {
				if _, seen := visited[st.nodeID]; !seen {
					if len(collected) >= limit {
						truncated = true
						continue
					}
					visited[st.nodeID] = struct{}{}
					collected = append(collected, st.nodeID)
					next = append(next, st.nodeID)
				}
				// Keep an edge only when both endpoints made the cut.
				if _, ok := edgeSeen[st.edgeID]; !ok {
					if _, inA := visited[id]; inA {
						if _, inB := visited[st.nodeID]; inB {
							edgeSeen[st.edgeID] = struct{}{}
							edgeIDs = append(edgeIDs, st.edgeID)
						}
					}
				}
			}
		}
		frontier = next
	}

	result := &types.SubgraphResult{Truncated: truncated}
	for _, id := range collected {
		ent := *s.nodes[id]
		result.Nodes = append(result.Nodes, &ent)
	}
	sort.Strings(edgeIDs)
	for _, id := range edgeIDs {
		rel := *s.edges[id]
		result.Relations = append(result.Relations, &rel)
	}
	return result, nil
}

func (s *Store) queryStatistics() *types.GraphStats {
	stats := &types.GraphStats{
		NodeCount:   len(s.nodes),
		EdgeCount:   len(s.edges),
		NodesByType: make(map[string]int, len(s.byType)),
	}
	for entityType, set := range s.byType {
		stats.NodesByType[string(entityType)] = len(set)
	}
	if stats.NodeCount > 0 {
		// Each edge contributes to the degree of both endpoints.
		stats.AverageDegree = float64(2*stats.EdgeCount) / float64(stats.NodeCount)
	}
	return stats
}
