package fanout

import (
	"time"

	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/query"
)

// Status is the terminal state of one dispatched sub-query.
type Status string

const (
	// StatusOk means the shard answered with a usable payload.
	StatusOk Status = "ok"
	// StatusApplicationError means the shard was reachable but returned a
	// semantic error (GraphQL errors, non-200 status).
	StatusApplicationError Status = "application_error"
	// StatusTransportError means the request never completed at the network
	// level (connection refused, pool exhausted, broken pipe).
	StatusTransportError Status = "transport_error"
	// StatusTimedOut means no resolution arrived before the deadline.
	StatusTimedOut Status = "timed_out"
)

// ShardTarget identifies one collection to dispatch to, plus any per-shard
// dispatch parameters. The target set of a batch is fixed configuration.
type ShardTarget struct {
	// Shard is the collection name.
	Shard string `yaml:"shard" json:"shard"`
	// Timeout optionally overrides the per-call timeout for this shard. It
	// is always clamped to the remaining batch deadline.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// Request is one backend-specific sub-request produced by a RequestBuilder.
type Request struct {
	Shard string
	Body  []byte
}

// SubQueryOutcome is the resolution of one (query, shard) dispatch.
// Immutable once created; exactly one exists per dispatched shard.
type SubQueryOutcome struct {
	Shard   string        `json:"shard"`
	Status  Status        `json:"status"`
	Payload []byte        `json:"payload,omitempty"` // present iff Status == StatusOk
	Err     string        `json:"error,omitempty"`   // present iff Status != StatusOk
	Elapsed time.Duration `json:"elapsed"`
}

// Ok reports whether the sub-query produced a usable payload.
func (o SubQueryOutcome) Ok() bool { return o.Status == StatusOk }

// Classification is the batch-level verdict derived from the sub-outcomes.
type Classification string

const (
	// FullSuccess means every shard answered Ok.
	FullSuccess Classification = "full_success"
	// PartialSuccess means some but not all shards answered Ok. Callers
	// must render this distinctly from FullSuccess (a degraded response).
	PartialSuccess Classification = "partial_success"
	// TotalFailure means no shard answered Ok; the merged payload is absent
	// and must not be read as an empty-but-valid result.
	TotalFailure Classification = "total_failure"
)

// BatchOutcome is the aggregate result of one fan-out batch. Constructed
// exactly once per logical query after all sub-queries resolve or the
// deadline expires, then never mutated.
type BatchOutcome struct {
	ID    string             `json:"id"`
	Query query.LogicalQuery `json:"query"`

	// SubOutcomes holds exactly one outcome per dispatched target, in
	// dispatch order. Resolution order is not preserved; use ByShard for
	// shard-keyed access.
	SubOutcomes []SubQueryOutcome `json:"sub_outcomes"`

	Classification Classification `json:"classification"`
	OkCount        int            `json:"ok_count"`

	// Latency is max(per-shard elapsed) bounded by the deadline: the batch
	// is dominated by its slowest shard, not the sum of all shards.
	Latency time.Duration `json:"latency"`

	// Merged is the aggregator's combined payload, present iff OkCount > 0.
	Merged any `json:"merged,omitempty"`

	Started time.Time `json:"started"`
}

// ByShard returns the outcome for the named shard.
func (b *BatchOutcome) ByShard(shard string) (SubQueryOutcome, bool) {
	for _, o := range b.SubOutcomes {
		if o.Shard == shard {
			return o, true
		}
	}
	return SubQueryOutcome{}, false
}

// Degraded reports whether the batch should be rendered as incomplete.
func (b *BatchOutcome) Degraded() bool {
	return b.Classification != FullSuccess
}

func classify(okCount, total int) Classification {
	switch {
	case okCount == total:
		return FullSuccess
	case okCount == 0:
		return TotalFailure
	default:
		return PartialSuccess
	}
}
