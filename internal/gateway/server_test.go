package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/internal/metrics"
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/fanout"
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/query"
)

// scriptedClient returns a fixed result per shard; the empty shard key
// matches the pass-through endpoint.
type scriptedClient struct {
	results map[string]fanout.Result
}

func (c *scriptedClient) Send(ctx context.Context, req fanout.Request, timeout time.Duration) fanout.Result {
	if res, ok := c.results[req.Shard]; ok {
		return res
	}
	return fanout.Result{Status: fanout.StatusOk, Payload: []byte(`{"data":{"Get":{}}}`), Elapsed: time.Millisecond}
}

func echoBuilder() fanout.RequestBuilder {
	return fanout.BuilderFunc(func(q query.LogicalQuery, target fanout.ShardTarget) (fanout.Request, error) {
		return fanout.Request{Shard: target.Shard, Body: []byte(q.Text)}, nil
	})
}

func newTestServer(t *testing.T, client fanout.BackendClient, recorder *metrics.BatchRecorder) *Server {
	t.Helper()
	coord := fanout.New(echoBuilder(), client)
	targets := []fanout.ShardTarget{{Shard: "SongLyrics"}, {Shard: "SongLyrics_400k"}}
	return New(Config{Address: ":0"}, coord, client, recorder, targets, 2*time.Second)
}

func postJSON(t *testing.T, s *Server, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestAsyncFullSuccess(t *testing.T) {
	s := newTestServer(t, &scriptedClient{}, nil)

	resp := postJSON(t, s, "/graphql/async", AsyncRequest{QueryText: "love", Limit: 10})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[AsyncResponse](t, resp)
	assert.NotEmpty(t, body.BatchID)
	assert.Equal(t, "love", body.QueryText)
	assert.Equal(t, fanout.FullSuccess, body.Classification)
	assert.False(t, body.Degraded)
	assert.Equal(t, 2, body.TotalCollections)
	assert.Equal(t, 2, body.SuccessfulCollections)
	assert.Zero(t, body.FailedCollections)
	assert.Len(t, body.Results, 2)
	assert.Greater(t, body.TotalTimeMs, 0.0)
}

func TestAsyncDegraded(t *testing.T) {
	client := &scriptedClient{results: map[string]fanout.Result{
		"SongLyrics_400k": {Status: fanout.StatusApplicationError, Err: "HTTP 500: shard down", Elapsed: time.Millisecond},
	}}
	s := newTestServer(t, client, nil)

	resp := postJSON(t, s, "/graphql/async", AsyncRequest{QueryText: "love"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[AsyncResponse](t, resp)
	assert.Equal(t, fanout.PartialSuccess, body.Classification)
	assert.True(t, body.Degraded)
	assert.Equal(t, 1, body.SuccessfulCollections)
	assert.Equal(t, 1, body.FailedCollections)

	var failed *ShardResult
	for i := range body.Results {
		if body.Results[i].Collection == "SongLyrics_400k" {
			failed = &body.Results[i]
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, fanout.StatusApplicationError, failed.Status)
	assert.Contains(t, failed.Error, "shard down")
}

func TestAsyncBadRequests(t *testing.T) {
	s := newTestServer(t, &scriptedClient{}, nil)

	cases := []struct {
		name string
		body AsyncRequest
	}{
		{"empty query text", AsyncRequest{}},
		{"alpha above one", AsyncRequest{QueryText: "x", Alpha: 1.5}},
		{"negative alpha", AsyncRequest{QueryText: "x", Alpha: -0.1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, s, "/graphql/async", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			body := decode[ErrorResponse](t, resp)
			assert.NotEmpty(t, body.Detail)
		})
	}
}

func TestAsyncMalformedBody(t *testing.T) {
	s := newTestServer(t, &scriptedClient{}, nil)

	req, err := http.NewRequest(http.MethodPost, "/graphql/async", bytes.NewReader([]byte("not json")))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPassthrough(t *testing.T) {
	client := &scriptedClient{results: map[string]fanout.Result{
		"": {Status: fanout.StatusOk, Payload: []byte(`{"data":{"Get":{"SongLyrics":[]}}}`), Elapsed: time.Millisecond},
	}}
	s := newTestServer(t, client, nil)

	resp := postJSON(t, s, "/graphql", GraphQLRequest{Query: "{ Get { SongLyrics { title } } }"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"Get":{"SongLyrics":[]}}}`, string(raw))
}

func TestPassthroughErrors(t *testing.T) {
	s := newTestServer(t, &scriptedClient{results: map[string]fanout.Result{
		"": {Status: fanout.StatusTimedOut, Err: "deadline exceeded"},
	}}, nil)
	resp := postJSON(t, s, "/graphql", GraphQLRequest{Query: "{}"})
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)

	s = newTestServer(t, &scriptedClient{results: map[string]fanout.Result{
		"": {Status: fanout.StatusTransportError, Err: "connection refused"},
	}}, nil)
	resp = postJSON(t, s, "/graphql", GraphQLRequest{Query: "{}"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	resp = postJSON(t, s, "/graphql", GraphQLRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &scriptedClient{}, nil)

	req, err := http.NewRequest(http.MethodGet, "/health", nil)
	require.NoError(t, err)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, 2.0, body["collections"])
}

func TestSummary(t *testing.T) {
	recorder := metrics.NewBatchRecorder()
	defer recorder.Close()
	s := newTestServer(t, &scriptedClient{}, recorder)

	resp := postJSON(t, s, "/graphql/async", AsyncRequest{QueryText: "love"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, "/summary", nil)
	require.NoError(t, err)
	resp, err = s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSummaryWithoutRecorder(t *testing.T) {
	s := newTestServer(t, &scriptedClient{}, nil)

	req, err := http.NewRequest(http.MethodGet, "/summary", nil)
	require.NoError(t, err)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
