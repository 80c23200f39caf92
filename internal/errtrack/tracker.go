// Package errtrack categorizes and retains shard-level failures observed
// during a run, for post-run diagnosis.
package errtrack

import (
	"sync"
	"time"

	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/fanout"
)

// maxSamples bounds the retained error details per category.
const maxSamples = 50

// Sample is one retained failure instance.
type Sample struct {
	Shard  string        `json:"shard"`
	Detail string        `json:"detail"`
	When   time.Time     `json:"when"`
	After  time.Duration `json:"after"`
}

// CategoryStats aggregates one failure category.
type CategoryStats struct {
	Count   int64            `json:"count"`
	ByShard map[string]int64 `json:"by_shard"`
	Recent  []Sample         `json:"recent"`
}

// Tracker accumulates failure statistics across batches. Safe for
// concurrent use.
type Tracker struct {
	mu         sync.Mutex
	categories map[fanout.Status]*CategoryStats
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{
		categories: make(map[fanout.Status]*CategoryStats),
	}
}

// Observe records every failed sub-outcome of the batch.
func (t *Tracker) Observe(batch *fanout.BatchOutcome) {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, o := range batch.SubOutcomes {
		if o.Ok() {
			continue
		}
		stats, ok := t.categories[o.Status]
		if !ok {
			stats = &CategoryStats{ByShard: make(map[string]int64)}
			t.categories[o.Status] = stats
		}
		stats.Count++
		stats.ByShard[o.Shard]++
		if len(stats.Recent) < maxSamples {
			stats.Recent = append(stats.Recent, Sample{
				Shard:  o.Shard,
				Detail: o.Err,
				When:   now,
				After:  o.Elapsed,
			})
		}
	}
}

// Report returns a copy of the accumulated statistics keyed by category.
func (t *Tracker) Report() map[fanout.Status]CategoryStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	report := make(map[fanout.Status]CategoryStats, len(t.categories))
	for status, stats := range t.categories {
		byShard := make(map[string]int64, len(stats.ByShard))
		for k, v := range stats.ByShard {
			byShard[k] = v
		}
		recent := make([]Sample, len(stats.Recent))
		copy(recent, stats.Recent)
		report[status] = CategoryStats{
			Count:   stats.Count,
			ByShard: byShard,
			Recent:  recent,
		}
	}
	return report
}

// TotalFailures returns the count of failed sub-queries across categories.
func (t *Tracker) TotalFailures() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	var total int64
	for _, stats := range t.categories {
		total += stats.Count
	}
	return total
}
