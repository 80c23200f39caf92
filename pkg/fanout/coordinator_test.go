package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/query"
)

// stubResponse scripts one shard's behavior in a stubClient.
type stubResponse struct {
	delay   time.Duration
	status  Status
	payload []byte
	errText string
	// hang simulates a shard that never answers: the call returns only
	// after cancellation, well past batch finalization.
	hang bool
}

type stubClient struct {
	mu        sync.Mutex
	calls     map[string]int
	responses map[string]stubResponse
}

func newStubClient(responses map[string]stubResponse) *stubClient {
	return &stubClient{
		calls:     make(map[string]int),
		responses: responses,
	}
}

func (c *stubClient) Send(ctx context.Context, req Request, timeout time.Duration) Result {
	c.mu.Lock()
	c.calls[req.Shard]++
	c.mu.Unlock()

	r := c.responses[req.Shard]
	start := time.Now()

	if r.hang {
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond) // resolves as a straggler
		return Result{Status: StatusTransportError, Err: "canceled", Elapsed: time.Since(start)}
	}

	if r.delay >= timeout {
		time.Sleep(timeout)
		return Result{Status: StatusTimedOut, Err: "client timeout", Elapsed: timeout}
	}

	select {
	case <-time.After(r.delay):
		return Result{Status: r.status, Payload: r.payload, Err: r.errText, Elapsed: time.Since(start)}
	case <-ctx.Done():
		return Result{Status: StatusTransportError, Err: "canceled", Elapsed: time.Since(start)}
	}
}

func (c *stubClient) callCount(shard string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[shard]
}

func (c *stubClient) totalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.calls {
		total += n
	}
	return total
}

func passthroughBuilder() RequestBuilder {
	return BuilderFunc(func(q query.LogicalQuery, target ShardTarget) (Request, error) {
		return Request{Shard: target.Shard, Body: []byte(q.Text)}, nil
	})
}

func targets(n int) []ShardTarget {
	ts := make([]ShardTarget, n)
	for i := range ts {
		ts[i] = ShardTarget{Shard: fmt.Sprintf("shard-%d", i+1)}
	}
	return ts
}

func testQuery() query.LogicalQuery {
	return query.New("love and heartbreak", 200, 0, nil)
}

type captureSink struct {
	mu      sync.Mutex
	batches []*BatchOutcome
}

func (s *captureSink) Record(batch *BatchOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, batch)
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func TestExecuteInvalidInputs(t *testing.T) {
	c := New(passthroughBuilder(), newStubClient(nil))

	_, err := c.Execute(context.Background(), testQuery(), nil, time.Second)
	assert.ErrorIs(t, err, ErrNoTargets)

	_, err = c.Execute(context.Background(), testQuery(), targets(3), 0)
	assert.ErrorIs(t, err, ErrBadDeadline)

	_, err = c.Execute(context.Background(), testQuery(), targets(3), -time.Second)
	assert.ErrorIs(t, err, ErrBadDeadline)
}

func TestExecuteFullSuccess(t *testing.T) {
	responses := map[string]stubResponse{
		"shard-1": {delay: 10 * time.Millisecond, status: StatusOk, payload: []byte(`{"a":1}`)},
		"shard-2": {delay: 40 * time.Millisecond, status: StatusOk, payload: []byte(`{"b":2}`)},
		"shard-3": {delay: 25 * time.Millisecond, status: StatusOk, payload: []byte(`{"c":3}`)},
	}
	client := newStubClient(responses)
	sink := &captureSink{}
	c := New(passthroughBuilder(), client, WithSink(sink))

	batch, err := c.Execute(context.Background(), testQuery(), targets(3), 2*time.Second)
	require.NoError(t, err)

	assert.Len(t, batch.SubOutcomes, 3)
	assert.Equal(t, FullSuccess, batch.Classification)
	assert.Equal(t, 3, batch.OkCount)
	assert.False(t, batch.Degraded())

	// Aggregate latency follows the slowest shard, not the sum.
	assert.GreaterOrEqual(t, batch.Latency, 40*time.Millisecond)
	assert.Less(t, batch.Latency, 200*time.Millisecond)

	merged, ok := batch.Merged.(map[string]json.RawMessage)
	require.True(t, ok)
	assert.Len(t, merged, 3)
	assert.JSONEq(t, `{"b":2}`, string(merged["shard-2"]))

	assert.Equal(t, 1, sink.count())
}

func TestExecuteSingleShard(t *testing.T) {
	client := newStubClient(map[string]stubResponse{
		"shard-1": {delay: 20 * time.Millisecond, status: StatusOk, payload: []byte(`{}`)},
	})
	c := New(passthroughBuilder(), client)

	batch, err := c.Execute(context.Background(), testQuery(), targets(1), 5*time.Second)
	require.NoError(t, err)

	assert.Len(t, batch.SubOutcomes, 1)
	assert.Equal(t, FullSuccess, batch.Classification)
	assert.Less(t, batch.Latency, time.Second)
}

// TestExecutePartialSuccessWithStraggler is the nine-shard scenario: seven
// shards answer, one returns an application error, one never responds.
func TestExecutePartialSuccessWithStraggler(t *testing.T) {
	responses := make(map[string]stubResponse)
	for i := 1; i <= 7; i++ {
		responses[fmt.Sprintf("shard-%d", i)] = stubResponse{
			delay:   time.Duration(10+5*i) * time.Millisecond,
			status:  StatusOk,
			payload: []byte(`{"ok":true}`),
		}
	}
	responses["shard-8"] = stubResponse{
		delay:   30 * time.Millisecond,
		status:  StatusApplicationError,
		errText: "GraphQL errors: vector length mismatch",
	}
	responses["shard-9"] = stubResponse{hang: true}

	client := newStubClient(responses)
	sink := &captureSink{}
	c := New(passthroughBuilder(), client, WithSink(sink))

	deadline := 300 * time.Millisecond
	start := time.Now()
	batch, err := c.Execute(context.Background(), testQuery(), targets(9), deadline)
	elapsed := time.Since(start)
	require.NoError(t, err)

	// Finalization is driven by the deadline, not by straggler cleanup.
	assert.Less(t, elapsed, deadline+150*time.Millisecond)

	assert.Len(t, batch.SubOutcomes, 9)
	assert.Equal(t, PartialSuccess, batch.Classification)
	assert.Equal(t, 7, batch.OkCount)
	assert.True(t, batch.Degraded())

	eight, ok := batch.ByShard("shard-8")
	require.True(t, ok)
	assert.Equal(t, StatusApplicationError, eight.Status)
	assert.Contains(t, eight.Err, "vector length mismatch")

	nine, ok := batch.ByShard("shard-9")
	require.True(t, ok)
	assert.Equal(t, StatusTimedOut, nine.Status)
	assert.Equal(t, deadline, nine.Elapsed)

	// The timed-out shard pins aggregate latency at the deadline.
	assert.Equal(t, deadline, batch.Latency)

	// Exactly one request per shard, no silent retries.
	for i := 1; i <= 9; i++ {
		assert.Equal(t, 1, client.callCount(fmt.Sprintf("shard-%d", i)))
	}
	assert.Equal(t, 1, sink.count())
}

func TestExecuteTotalFailure(t *testing.T) {
	client := newStubClient(map[string]stubResponse{
		"shard-1": {delay: 5 * time.Millisecond, status: StatusTransportError, errText: "connection refused"},
		"shard-2": {delay: 5 * time.Millisecond, status: StatusApplicationError, errText: "HTTP 500"},
	})
	c := New(passthroughBuilder(), client)

	batch, err := c.Execute(context.Background(), testQuery(), targets(2), time.Second)
	require.NoError(t, err)

	assert.Equal(t, TotalFailure, batch.Classification)
	assert.Equal(t, 0, batch.OkCount)
	assert.Len(t, batch.SubOutcomes, 2)

	// No usable answer: merged payload must be absent, not empty-but-valid.
	assert.Nil(t, batch.Merged)
}

func TestExecutePerShardTimeoutOverride(t *testing.T) {
	client := newStubClient(map[string]stubResponse{
		"slow": {delay: time.Second, status: StatusOk},
		"fast": {delay: 5 * time.Millisecond, status: StatusOk, payload: []byte(`{}`)},
	})
	c := New(passthroughBuilder(), client)

	ts := []ShardTarget{
		{Shard: "slow", Timeout: 50 * time.Millisecond},
		{Shard: "fast"},
	}
	batch, err := c.Execute(context.Background(), testQuery(), ts, 2*time.Second)
	require.NoError(t, err)

	slow, ok := batch.ByShard("slow")
	require.True(t, ok)
	assert.Equal(t, StatusTimedOut, slow.Status)

	assert.Equal(t, PartialSuccess, batch.Classification)
	// The override times the shard out well before the batch deadline.
	assert.Less(t, batch.Latency, time.Second)
}

func TestExecuteBuildFailureIsFatal(t *testing.T) {
	builder := BuilderFunc(func(q query.LogicalQuery, target ShardTarget) (Request, error) {
		return Request{}, fmt.Errorf("bad target %s", target.Shard)
	})
	client := newStubClient(nil)
	c := New(builder, client)

	_, err := c.Execute(context.Background(), testQuery(), targets(2), time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build request")

	// Nothing was dispatched.
	assert.Equal(t, 0, client.totalCalls())
}

type panickingSink struct{}

func (panickingSink) Record(*BatchOutcome) { panic("sink down") }

func TestExecuteSurvivesSinkPanic(t *testing.T) {
	client := newStubClient(map[string]stubResponse{
		"shard-1": {delay: time.Millisecond, status: StatusOk, payload: []byte(`{}`)},
	})
	c := New(passthroughBuilder(), client, WithSink(panickingSink{}))

	batch, err := c.Execute(context.Background(), testQuery(), targets(1), time.Second)
	require.NoError(t, err)
	assert.Equal(t, FullSuccess, batch.Classification)
}

func TestConcurrentBatchesAreIndependent(t *testing.T) {
	client := newStubClient(map[string]stubResponse{
		"shard-1": {delay: 10 * time.Millisecond, status: StatusOk, payload: []byte(`{}`)},
		"shard-2": {delay: 15 * time.Millisecond, status: StatusOk, payload: []byte(`{}`)},
	})
	c := New(passthroughBuilder(), client)

	const batches = 20
	var wg sync.WaitGroup
	results := make([]*BatchOutcome, batches)
	for i := 0; i < batches; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			batch, err := c.Execute(context.Background(), testQuery(), targets(2), time.Second)
			require.NoError(t, err)
			results[i] = batch
		}(i)
	}
	wg.Wait()

	ids := make(map[string]bool, batches)
	for _, batch := range results {
		require.NotNil(t, batch)
		assert.Len(t, batch.SubOutcomes, 2)
		assert.Equal(t, FullSuccess, batch.Classification)
		ids[batch.ID] = true
	}
	assert.Len(t, ids, batches)

	// 20 batches x 2 shards, one request each.
	assert.Equal(t, 2*batches, client.totalCalls())
}
