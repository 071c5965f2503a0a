package dto

import (
	"strconv"

	"github.com/graphein/graphein/pkg/types"
)

// KGQueryParams mirrors the query string of GET /kg/query before it is
// resolved into a typed graph query.
type KGQueryParams struct {
	QueryType    string
	EntityType   string
	ValuePattern string
	Source       string
	Target       string
	RelationType string
	MaxDepth     string
	Limit        string
}

// ToGraphQuery resolves the raw parameters. Unknown query types surface as
// an InvalidQueryTypeError; non-numeric bounds surface as a ValidationError.
func (p *KGQueryParams) ToGraphQuery() (*types.GraphQuery, error) {
	kind, err := types.ParseQueryKind(p.QueryType)
	if err != nil {
		return nil, err
	}
	q := &types.GraphQuery{
		Kind:         kind,
		EntityType:   p.EntityType,
		ValuePattern: p.ValuePattern,
		Source:       p.Source,
		Target:       p.Target,
		RelationType: p.RelationType,
	}
	if p.MaxDepth != "" {
		n, err := strconv.Atoi(p.MaxDepth)
		if err != nil || n < 0 {
			return nil, &ValidationError{Field: "max_depth", Reason: "must be a non-negative integer"}
		}
		q.MaxDepth = n
	}
	if p.Limit != "" {
		n, err := strconv.Atoi(p.Limit)
		if err != nil || n < 0 {
			return nil, &ValidationError{Field: "limit", Reason: "must be a non-negative integer"}
		}
		q.Limit = n
	}
	return q, nil
}
