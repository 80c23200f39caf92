package metrics

import (
	"sort"
	"strings"
	"time"

	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/internal/errtrack"
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/fanout"
)

// ShardStats is the per-shard latency table of a run summary.
type ShardStats struct {
	Shard string             `json:"shard"`
	Stats map[string]float64 `json:"stats"`
}

// Summary is the end-of-run aggregate handed to reporters.
type Summary struct {
	Duration time.Duration `json:"duration"`

	TotalBatches   int64 `json:"total_batches"`
	FullSuccess    int64 `json:"full_success"`
	PartialSuccess int64 `json:"partial_success"`
	TotalFailure   int64 `json:"total_failure"`

	// BatchLatency holds min/max/avg/med/p(90)/p(95)/p(99) in ms.
	BatchLatency map[string]float64 `json:"batch_latency"`

	// ShardOkRate is the fraction of sub-queries that resolved Ok.
	ShardOkRate float64 `json:"shard_ok_rate"`

	Shards []ShardStats `json:"shards"`

	Errors map[fanout.Status]errtrack.CategoryStats `json:"errors,omitempty"`

	DroppedSamples int64 `json:"dropped_samples,omitempty"`
}

// Summarize snapshots the recorder into a Summary.
func (r *BatchRecorder) Summarize() *Summary {
	elapsed := r.Elapsed()
	seconds := elapsed.Seconds()

	s := &Summary{
		Duration:       elapsed,
		DroppedSamples: r.Dropped(),
		Errors:         r.tracker.Report(),
	}

	counter := func(name string) int64 {
		m := r.registry.Get(name)
		if m == nil || m.Sink.IsEmpty() {
			return 0
		}
		return int64(m.Sink.Format(seconds)["count"])
	}
	s.FullSuccess = counter(MetricBatchFull)
	s.PartialSuccess = counter(MetricBatchPartial)
	s.TotalFailure = counter(MetricBatchFailed)
	s.TotalBatches = s.FullSuccess + s.PartialSuccess + s.TotalFailure

	if m := r.registry.Get(MetricBatchLatency); m != nil && !m.Sink.IsEmpty() {
		s.BatchLatency = m.Sink.Format(seconds)
	}
	if m := r.registry.Get(MetricShardOkRate); m != nil && !m.Sink.IsEmpty() {
		s.ShardOkRate = m.Sink.Format(seconds)["rate"]
	}

	for name, m := range r.registry.All() {
		if !strings.HasPrefix(name, MetricShardLatency+"{shard=") || m.Sink.IsEmpty() {
			continue
		}
		shard := strings.TrimSuffix(strings.TrimPrefix(name, MetricShardLatency+"{shard="), "}")
		s.Shards = append(s.Shards, ShardStats{
			Shard: shard,
			Stats: m.Sink.Format(seconds),
		})
	}
	sort.Slice(s.Shards, func(i, j int) bool { return s.Shards[i].Shard < s.Shards[j].Shard })

	return s
}
