package fanout

import (
	"encoding/json"

	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/query"
)

// Merger turns the Ok sub-outcomes of a batch into one logical payload. It
// is pure over already-resolved outcomes: no blocking, no I/O. Merge is only
// called when at least one outcome is Ok; failed shards contribute nothing
// but remain visible in the batch's sub-outcomes.
type Merger interface {
	Merge(ok []SubQueryOutcome, q query.LogicalQuery) any
}

// MergeFunc adapts a function to the Merger interface.
type MergeFunc func(ok []SubQueryOutcome, q query.LogicalQuery) any

// Merge implements Merger.
func (f MergeFunc) Merge(ok []SubQueryOutcome, q query.LogicalQuery) any {
	return f(ok, q)
}

// ConcatMerger is the default merge strategy: the raw payload of every Ok
// shard, keyed by shard name so callers never depend on arrival order.
type ConcatMerger struct{}

// Merge implements Merger.
func (ConcatMerger) Merge(ok []SubQueryOutcome, _ query.LogicalQuery) any {
	merged := make(map[string]json.RawMessage, len(ok))
	for _, o := range ok {
		merged[o.Shard] = json.RawMessage(o.Payload)
	}
	return merged
}
