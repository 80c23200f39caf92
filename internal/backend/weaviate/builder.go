package weaviate

import (
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/fanout"
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/query"
)

// Builder renders one collection-scoped GraphQL query per shard target.
// Stateless; implements fanout.RequestBuilder.
type Builder struct{}

// NewBuilder creates a Builder.
func NewBuilder() Builder { return Builder{} }

// Build implements fanout.RequestBuilder.
func (Builder) Build(q query.LogicalQuery, target fanout.ShardTarget) (fanout.Request, error) {
	graphql, err := query.BuildGraphQL(q, target.Shard)
	if err != nil {
		return fanout.Request{}, err
	}
	return fanout.Request{
		Shard: target.Shard,
		Body:  []byte(graphql),
	}, nil
}
