// Package query defines logical search queries and the per-collection
// GraphQL sub-query builders used by the fan-out coordinator.
package query

import (
	"errors"
	"fmt"
)

// SearchMode selects how a logical query is executed against a collection.
type SearchMode string

const (
	// ModeBM25 is pure keyword search.
	ModeBM25 SearchMode = "bm25"
	// ModeVector is pure vector (nearVector) search.
	ModeVector SearchMode = "vector"
	// ModeHybrid blends keyword and vector ranking via Alpha.
	ModeHybrid SearchMode = "hybrid"
)

// DefaultLimit is the per-collection result limit when none is given.
const DefaultLimit = 200

// LogicalQuery is one logical search request, answered by fanning out to all
// collections. Immutable once built; the coordinator only reads it.
type LogicalQuery struct {
	Text   string     `json:"query_text"`
	Limit  int        `json:"limit"`
	Mode   SearchMode `json:"mode"`
	Alpha  float64    `json:"alpha,omitempty"`
	Vector []float32  `json:"vector,omitempty"`
}

// New builds a LogicalQuery, deriving the mode from alpha the way the
// gateway does: alpha == 0 means bm25, alpha > 0 means hybrid.
func New(text string, limit int, alpha float64, vector []float32) LogicalQuery {
	q := LogicalQuery{
		Text:   text,
		Limit:  limit,
		Alpha:  alpha,
		Vector: vector,
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if alpha == 0 {
		q.Mode = ModeBM25
		q.Alpha = 0
	} else {
		q.Mode = ModeHybrid
	}
	return q
}

// Validate checks the query for contradictions before dispatch.
func (q LogicalQuery) Validate() error {
	if q.Text == "" && q.Mode != ModeVector {
		return errors.New("query text is empty")
	}
	if q.Limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", q.Limit)
	}
	switch q.Mode {
	case ModeBM25:
		if q.Alpha != 0 {
			return fmt.Errorf("bm25 query cannot carry alpha %v", q.Alpha)
		}
	case ModeHybrid:
		if q.Alpha <= 0 || q.Alpha > 1 {
			return fmt.Errorf("hybrid alpha must be in (0,1], got %v", q.Alpha)
		}
	case ModeVector:
		if len(q.Vector) == 0 {
			return errors.New("vector query requires an embedding")
		}
	default:
		return fmt.Errorf("unknown search mode %q", q.Mode)
	}
	return nil
}
