package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/internal/errtrack"
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/fanout"
)

// Metric names recorded per batch.
const (
	MetricBatchLatency  = "batch_latency"
	MetricBatchFull     = "batches_full_success"
	MetricBatchPartial  = "batches_partial_success"
	MetricBatchFailed   = "batches_total_failure"
	MetricShardOkRate   = "shard_ok"
	MetricShardLatency  = "shard_latency"
	MetricBatchDegraded = "batch_degraded"
)

// defaultBuffer is the recorder queue depth before samples are dropped.
const defaultBuffer = 1024

// BatchRecorder implements fanout.MetricsSink. Record never blocks the
// batch: outcomes are queued and drained by a background goroutine, and
// dropped when the queue is full.
type BatchRecorder struct {
	registry *Registry
	tracker  *errtrack.Tracker

	queue   chan *fanout.BatchOutcome
	dropped atomic.Int64

	started time.Time
	stopped time.Time

	wg      sync.WaitGroup
	closeMu sync.Mutex
	closed  bool
}

// NewBatchRecorder creates a recorder draining into a fresh registry.
func NewBatchRecorder() *BatchRecorder {
	r := &BatchRecorder{
		registry: NewRegistry(),
		tracker:  errtrack.New(),
		queue:    make(chan *fanout.BatchOutcome, defaultBuffer),
		started:  time.Now(),
	}

	r.registry.NewMetric(MetricBatchLatency, Trend)
	r.registry.NewMetric(MetricBatchFull, Counter)
	r.registry.NewMetric(MetricBatchPartial, Counter)
	r.registry.NewMetric(MetricBatchFailed, Counter)
	r.registry.NewMetric(MetricShardOkRate, Rate)
	r.registry.NewMetric(MetricBatchDegraded, Rate)

	r.wg.Add(1)
	go r.drain()
	return r
}

// Record implements fanout.MetricsSink.
func (r *BatchRecorder) Record(batch *fanout.BatchOutcome) {
	select {
	case r.queue <- batch:
	default:
		r.dropped.Add(1)
	}
}

// Registry exposes the underlying metric registry.
func (r *BatchRecorder) Registry() *Registry { return r.registry }

// Errors exposes the failure tracker.
func (r *BatchRecorder) Errors() *errtrack.Tracker { return r.tracker }

// Dropped returns the number of batches dropped under backpressure.
func (r *BatchRecorder) Dropped() int64 { return r.dropped.Load() }

func (r *BatchRecorder) drain() {
	defer r.wg.Done()
	for batch := range r.queue {
		r.ingest(batch)
	}
}

func (r *BatchRecorder) ingest(batch *fanout.BatchOutcome) {
	now := time.Now()
	r.add(MetricBatchLatency, now, float64(batch.Latency.Milliseconds()))

	switch batch.Classification {
	case fanout.FullSuccess:
		r.add(MetricBatchFull, now, 1)
	case fanout.PartialSuccess:
		r.add(MetricBatchPartial, now, 1)
	case fanout.TotalFailure:
		r.add(MetricBatchFailed, now, 1)
	}

	degraded := 0.0
	if !batch.Degraded() {
		degraded = 1 // rate sink counts non-zero as pass
	}
	r.add(MetricBatchDegraded, now, degraded)

	for _, o := range batch.SubOutcomes {
		ok := 0.0
		if o.Ok() {
			ok = 1
		}
		r.add(MetricShardOkRate, now, ok)
		r.addShard(o.Shard, now, float64(o.Elapsed.Milliseconds()))
	}

	r.tracker.Observe(batch)
}

func (r *BatchRecorder) add(name string, at time.Time, value float64) {
	m := r.registry.Get(name)
	if m == nil {
		return
	}
	m.Sink.Add(Sample{Metric: m, Time: at, Value: value})
}

func (r *BatchRecorder) addShard(shard string, at time.Time, ms float64) {
	m := r.registry.NewMetric(MetricShardLatency+"{shard="+shard+"}", Trend)
	m.Sink.Add(Sample{Metric: m, Time: at, Value: ms})
}

// Close stops the drain goroutine after the queue is emptied. Record must
// not be called after Close.
func (r *BatchRecorder) Close() {
	r.closeMu.Lock()
	defer r.closeMu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.stopped = time.Now()
	close(r.queue)
	r.wg.Wait()
}

// Elapsed returns the observed run length.
func (r *BatchRecorder) Elapsed() time.Duration {
	if !r.stopped.IsZero() {
		return r.stopped.Sub(r.started)
	}
	return time.Since(r.started)
}
