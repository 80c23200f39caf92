package fanout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/logger"
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/query"
)

// RequestBuilder maps a logical query onto one shard-scoped request. It must
// be a pure function of its inputs.
type RequestBuilder interface {
	Build(q query.LogicalQuery, target ShardTarget) (Request, error)
}

// BuilderFunc adapts a function to the RequestBuilder interface.
type BuilderFunc func(q query.LogicalQuery, target ShardTarget) (Request, error)

// Build implements RequestBuilder.
func (f BuilderFunc) Build(q query.LogicalQuery, target ShardTarget) (Request, error) {
	return f(q, target)
}

// Result is the typed outcome of one backend call, without shard identity.
type Result struct {
	Status  Status
	Payload []byte
	Err     string
	Elapsed time.Duration
}

// BackendClient issues one request to one shard. Send must honor ctx for
// best-effort cancellation and must never hang past timeout, even when the
// underlying connection pool is saturated.
type BackendClient interface {
	Send(ctx context.Context, req Request, timeout time.Duration) Result
}

// MetricsSink receives every finalized batch. Implementations must not
// block; dropping samples is acceptable, delaying the batch is not.
type MetricsSink interface {
	Record(batch *BatchOutcome)
}

var (
	// ErrNoTargets is returned when Execute is called with no shards.
	ErrNoTargets = errors.New("fanout: no shard targets")
	// ErrBadDeadline is returned for a non-positive batch deadline.
	ErrBadDeadline = errors.New("fanout: deadline must be positive")
)

// Coordinator executes fan-out batches: one goroutine per shard, a single
// batch deadline, complete per-shard accounting. Stateless across batches;
// one Coordinator may run any number of batches concurrently.
type Coordinator struct {
	builder RequestBuilder
	client  BackendClient
	merger  Merger
	sink    MetricsSink
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithMerger sets the result aggregation strategy.
func WithMerger(m Merger) Option {
	return func(c *Coordinator) { c.merger = m }
}

// WithSink sets the metrics sink batches are recorded to.
func WithSink(s MetricsSink) Option {
	return func(c *Coordinator) { c.sink = s }
}

// New creates a Coordinator over the given builder and client.
func New(builder RequestBuilder, client BackendClient, opts ...Option) *Coordinator {
	c := &Coordinator{
		builder: builder,
		client:  client,
		merger:  ConcatMerger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type indexed struct {
	i       int
	outcome SubQueryOutcome
}

// Execute runs exactly one batch: it dispatches one sub-query per target
// concurrently, waits until all resolve or deadline fires, and returns the
// finalized BatchOutcome. Shard-level failures are data, never errors; an
// error return means the batch could not start at all.
func (c *Coordinator) Execute(ctx context.Context, q query.LogicalQuery, targets []ShardTarget, deadline time.Duration) (*BatchOutcome, error) {
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	if deadline <= 0 {
		return nil, ErrBadDeadline
	}

	// Build every sub-request up front. A build failure means the logical
	// query itself is malformed, which is a caller bug, not a shard outcome.
	requests := make([]Request, len(targets))
	for i, t := range targets {
		req, err := c.builder.Build(q, t)
		if err != nil {
			return nil, fmt.Errorf("fanout: build request for shard %s: %w", t.Shard, err)
		}
		requests[i] = req
	}

	batch := &BatchOutcome{
		ID:      uuid.NewString(),
		Query:   q,
		Started: time.Now(),
	}

	batchCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	// Buffered to len(targets) so stragglers resolving after finalization
	// never block; their sends land in the buffer and are discarded.
	results := make(chan indexed, len(targets))

	for i := range targets {
		timeout := deadline
		if t := targets[i].Timeout; t > 0 && t < timeout {
			timeout = t
		}
		go func(i int, req Request, timeout time.Duration) {
			res := c.client.Send(batchCtx, req, timeout)
			results <- indexed{i: i, outcome: SubQueryOutcome{
				Shard:   req.Shard,
				Status:  res.Status,
				Payload: res.Payload,
				Err:     res.Err,
				Elapsed: res.Elapsed,
			}}
		}(i, requests[i], timeout)
	}

	outcomes := make([]SubQueryOutcome, len(targets))
	seen := make([]bool, len(targets))
	resolved := 0

	timer := time.NewTimer(deadline)
	defer timer.Stop()

collect:
	for resolved < len(targets) {
		select {
		case r := <-results:
			if seen[r.i] {
				continue
			}
			seen[r.i] = true
			outcomes[r.i] = r.outcome
			resolved++
		case <-timer.C:
			// Deadline fired. Cancel in-flight calls best-effort, but do
			// not wait for them: finalization is driven by the clock.
			cancel()
			break collect
		}
	}

	for i := range targets {
		if !seen[i] {
			outcomes[i] = SubQueryOutcome{
				Shard:   targets[i].Shard,
				Status:  StatusTimedOut,
				Err:     fmt.Sprintf("no response within %s", deadline),
				Elapsed: deadline,
			}
		}
	}

	batch.SubOutcomes = outcomes
	for _, o := range outcomes {
		if o.Ok() {
			batch.OkCount++
		}
		if o.Elapsed > batch.Latency {
			batch.Latency = o.Elapsed
		}
	}
	if batch.Latency > deadline {
		batch.Latency = deadline
	}
	batch.Classification = classify(batch.OkCount, len(targets))

	if batch.OkCount > 0 && c.merger != nil {
		batch.Merged = c.merger.Merge(okOutcomes(outcomes), q)
	}

	c.record(batch)
	return batch, nil
}

// record hands the batch to the sink exactly once. A panicking sink must not
// take the batch down with it.
func (c *Coordinator) record(batch *BatchOutcome) {
	if c.sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.L().Warn("metrics sink panicked", zap.Any("panic", r), zap.String("batch", batch.ID))
		}
	}()
	c.sink.Record(batch)
}

func okOutcomes(outcomes []SubQueryOutcome) []SubQueryOutcome {
	ok := make([]SubQueryOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Ok() {
			ok = append(ok, o)
		}
	}
	return ok
}
