// Package weaviate implements the backend client, sub-query builder and
// score merger for a sharded Weaviate deployment.
package weaviate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/fanout"
)

// graphqlPath includes consistency_level=ONE: the perf harness measures
// query latency, not replication consistency.
const graphqlPath = "/v1/graphql?consistency_level=ONE"

// Config holds the backend connection settings.
type Config struct {
	// URL is the Weaviate base URL, e.g. "http://localhost:8080".
	URL string `yaml:"url"`
	// APIKey is sent as a bearer token when set.
	APIKey string `yaml:"api_key"`
	// MaxConnsPerHost bounds the shared connection pool.
	MaxConnsPerHost int `yaml:"max_conns_per_host"`
}

// DefaultConfig returns the default backend settings.
func DefaultConfig() Config {
	return Config{
		URL:             "http://localhost:8080",
		MaxConnsPerHost: 1000,
	}
}

// Client issues GraphQL sub-queries over a shared fasthttp connection pool.
// Safe for concurrent use by any number of batches.
type Client struct {
	cfg  Config
	url  string
	http *fasthttp.Client

	once sync.Once
}

// NewClient creates a Client over the given config.
func NewClient(cfg Config) *Client {
	if cfg.MaxConnsPerHost <= 0 {
		cfg.MaxConnsPerHost = DefaultConfig().MaxConnsPerHost
	}
	return &Client{
		cfg: cfg,
		url: strings.TrimRight(cfg.URL, "/") + graphqlPath,
	}
}

func (c *Client) client() *fasthttp.Client {
	c.once.Do(func() {
		c.http = &fasthttp.Client{
			MaxConnsPerHost:     c.cfg.MaxConnsPerHost,
			MaxIdleConnDuration: 90 * time.Second,
		}
	})
	return c.http
}

type graphqlPayload struct {
	Query string `json:"query"`
}

type graphqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

// Send implements fanout.BackendClient. The call never outlives timeout or
// the context deadline, whichever is sooner; a saturated pool surfaces as a
// transport error, never a hang.
func (c *Client) Send(ctx context.Context, req fanout.Request, timeout time.Duration) fanout.Result {
	start := time.Now()

	deadline := start.Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := ctx.Err(); err != nil {
		return fanout.Result{
			Status:  fanout.StatusTransportError,
			Err:     fmt.Sprintf("not dispatched: %v", err),
			Elapsed: time.Since(start),
		}
	}

	body, err := json.Marshal(graphqlPayload{Query: string(req.Body)})
	if err != nil {
		return fanout.Result{
			Status:  fanout.StatusTransportError,
			Err:     fmt.Sprintf("encode request: %v", err),
			Elapsed: time.Since(start),
		}
	}

	httpReq := fasthttp.AcquireRequest()
	httpResp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(httpReq)
	defer fasthttp.ReleaseResponse(httpResp)

	httpReq.Header.SetMethod(fasthttp.MethodPost)
	httpReq.SetRequestURI(c.url)
	httpReq.Header.SetContentType("application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	httpReq.SetBody(body)

	err = c.client().DoDeadline(httpReq, httpResp, deadline)
	elapsed := time.Since(start)

	if err != nil {
		status := fanout.StatusTransportError
		if err == fasthttp.ErrTimeout || time.Now().After(deadline) {
			status = fanout.StatusTimedOut
		}
		return fanout.Result{
			Status:  status,
			Err:     err.Error(),
			Elapsed: elapsed,
		}
	}

	return classify(httpResp.StatusCode(), httpResp.Body(), elapsed)
}

// classify maps an HTTP response onto the sub-query outcome taxonomy: a 200
// without GraphQL errors is Ok, everything else the backend said is an
// application error.
func classify(statusCode int, body []byte, elapsed time.Duration) fanout.Result {
	if statusCode != fasthttp.StatusOK {
		return fanout.Result{
			Status:  fanout.StatusApplicationError,
			Err:     fmt.Sprintf("HTTP %d: %s", statusCode, snippet(body)),
			Elapsed: elapsed,
		}
	}

	var envelope graphqlEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fanout.Result{
			Status:  fanout.StatusApplicationError,
			Err:     fmt.Sprintf("malformed response: %v", err),
			Elapsed: elapsed,
		}
	}
	if len(envelope.Errors) > 0 && string(envelope.Errors) != "null" {
		return fanout.Result{
			Status:  fanout.StatusApplicationError,
			Err:     "GraphQL errors: " + snippet(envelope.Errors),
			Elapsed: elapsed,
		}
	}

	payload := make([]byte, len(body))
	copy(payload, body)
	return fanout.Result{
		Status:  fanout.StatusOk,
		Payload: payload,
		Elapsed: elapsed,
	}
}

func snippet(b []byte) string {
	const max = 200
	s := string(b)
	if len(s) > max {
		return s[:max]
	}
	return s
}
