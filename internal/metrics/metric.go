// Package metrics provides the sample sinks and the batch recorder feeding
// percentile-based load analysis.
package metrics

import (
	"sync"
	"time"
)

// MetricType selects the aggregation behavior of a metric.
type MetricType string

const (
	// Counter only accumulates.
	Counter MetricType = "counter"
	// Gauge tracks the latest value plus min/max/avg.
	Gauge MetricType = "gauge"
	// Rate tracks a pass/fail ratio.
	Rate MetricType = "rate"
	// Trend tracks a latency distribution with percentiles.
	Trend MetricType = "trend"
)

// Metric is one named measurement series.
type Metric struct {
	Name string            `json:"name"`
	Type MetricType        `json:"type"`
	Tags map[string]string `json:"tags,omitempty"`
	Sink Sink              `json:"-"`
}

// Sample is a single observation of a metric. Value is milliseconds for
// trend metrics.
type Sample struct {
	Metric *Metric
	Time   time.Time
	Value  float64
	Tags   map[string]string
}

// Registry manages registered metrics.
type Registry struct {
	metrics map[string]*Metric
	mu      sync.RWMutex
}

// NewRegistry creates an empty metric registry.
func NewRegistry() *Registry {
	return &Registry{metrics: make(map[string]*Metric)}
}

// NewMetric creates and registers a metric, returning the existing one if
// the name is already taken.
func (r *Registry) NewMetric(name string, metricType MetricType) *Metric {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.metrics[name]; ok {
		return m
	}
	m := &Metric{
		Name: name,
		Type: metricType,
		Tags: make(map[string]string),
		Sink: NewSink(metricType),
	}
	r.metrics[name] = m
	return m
}

// Get returns a registered metric or nil.
func (r *Registry) Get(name string) *Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metrics[name]
}

// All returns a snapshot of the registered metrics.
func (r *Registry) All() map[string]*Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Metric, len(r.metrics))
	for k, v := range r.metrics {
		result[k] = v
	}
	return result
}
