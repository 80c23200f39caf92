package gateway

import (
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/fanout"
)

// AsyncRequest is the body of POST /graphql/async. alpha == 0 (or absent)
// selects bm25; alpha > 0 selects hybrid with that alpha.
type AsyncRequest struct {
	QueryText string    `json:"query_text"`
	Limit     int       `json:"limit"`
	Alpha     float64   `json:"alpha"`
	Vector    []float32 `json:"vector"`
}

// ShardResult is one collection's outcome in an AsyncResponse.
type ShardResult struct {
	Collection string        `json:"collection"`
	Status     fanout.Status `json:"status"`
	Error      string        `json:"error,omitempty"`
	ElapsedMs  float64       `json:"elapsed_ms"`
}

// AsyncResponse is the body returned by POST /graphql/async.
type AsyncResponse struct {
	BatchID        string                `json:"batch_id"`
	QueryText      string                `json:"query_text"`
	Limit          int                   `json:"limit"`
	Alpha          float64               `json:"alpha"`
	Classification fanout.Classification `json:"classification"`
	// Degraded is true whenever the merged payload is incomplete; callers
	// must not present a degraded response as a full answer.
	Degraded              bool          `json:"degraded"`
	TotalCollections      int           `json:"total_collections"`
	SuccessfulCollections int           `json:"successful_collections"`
	FailedCollections     int           `json:"failed_collections"`
	Results               []ShardResult `json:"results"`
	Merged                any           `json:"merged,omitempty"`
	TotalTimeMs           float64       `json:"total_time_ms"`
}

// GraphQLRequest is the body of POST /graphql: a raw query passed through
// to the backend unmodified.
type GraphQLRequest struct {
	Query string `json:"query"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
