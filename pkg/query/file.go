package query

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sync"
)

// FileEntry is one record of a query file: a JSON array of queries prepared
// ahead of a test run, optionally with the rendered GraphQL and embedding.
type FileEntry struct {
	QueryText string    `json:"query_text"`
	Limit     int       `json:"limit,omitempty"`
	Alpha     *float64  `json:"alpha,omitempty"`
	GraphQL   string    `json:"graphql,omitempty"`
	Vector    []float32 `json:"vector,omitempty"`
}

// Set is an immutable collection of logical queries loaded from a query
// file. Safe for concurrent use by many virtual users.
type Set struct {
	queries []LogicalQuery

	mu  sync.Mutex
	rng *rand.Rand
}

// LoadFile reads a query file and materializes the logical queries.
// defaultAlpha applies to entries that don't carry their own alpha; pass 0
// for bm25 files.
func LoadFile(path string, defaultAlpha float64) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read query file: %w", err)
	}

	var entries []FileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse query file %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("query file %s contains no queries", path)
	}

	queries := make([]LogicalQuery, 0, len(entries))
	for i, e := range entries {
		alpha := defaultAlpha
		if e.Alpha != nil {
			alpha = *e.Alpha
		}
		vector := e.Vector
		if vector == nil && e.GraphQL != "" {
			vector = ExtractVector(e.GraphQL)
		}
		q := New(e.QueryText, e.Limit, alpha, vector)
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("query %d in %s: %w", i, path, err)
		}
		queries = append(queries, q)
	}

	return NewSet(queries, rand.Int63()), nil
}

// NewSet builds a Set over the given queries with a seeded picker.
func NewSet(queries []LogicalQuery, seed int64) *Set {
	return &Set{
		queries: queries,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Len returns the number of queries in the set.
func (s *Set) Len() int { return len(s.queries) }

// All returns the loaded queries.
func (s *Set) All() []LogicalQuery { return s.queries }

// Pick returns a random query, mirroring the load drivers' random.choice.
func (s *Set) Pick() LogicalQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[s.rng.Intn(len(s.queries))]
}
