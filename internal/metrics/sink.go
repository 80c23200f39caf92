package metrics

import (
	"sync"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Sink aggregates samples of one metric.
type Sink interface {
	// Add records one sample.
	Add(sample Sample)
	// Format returns the aggregated statistics. duration is the run length
	// in seconds, used for rate-per-second figures.
	Format(duration float64) map[string]float64
	// IsEmpty reports whether the sink has seen no samples.
	IsEmpty() bool
}

// NewSink creates the sink matching the metric type.
func NewSink(metricType MetricType) Sink {
	switch metricType {
	case Counter:
		return &CounterSink{}
	case Gauge:
		return &GaugeSink{}
	case Rate:
		return &RateSink{}
	case Trend:
		return NewTrendSink()
	default:
		return &CounterSink{}
	}
}

// CounterSink accumulates a monotonically increasing total.
type CounterSink struct {
	Value float64
	mu    sync.Mutex
}

// Add records one sample.
func (c *CounterSink) Add(sample Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Value += sample.Value
}

// Format returns count and per-second rate.
func (c *CounterSink) Format(duration float64) map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := map[string]float64{"count": c.Value}
	if duration > 0 {
		result["rate"] = c.Value / duration
	}
	return result
}

// IsEmpty reports whether nothing was counted.
func (c *CounterSink) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Value == 0
}

// GaugeSink tracks the latest value with min/max/avg.
type GaugeSink struct {
	Value  float64
	Min    float64
	Max    float64
	Sum    float64
	Count  int64
	minSet bool
	mu     sync.Mutex
}

// Add records one sample.
func (g *GaugeSink) Add(sample Sample) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Value = sample.Value
	g.Sum += sample.Value
	g.Count++
	if !g.minSet || sample.Value < g.Min {
		g.Min = sample.Value
		g.minSet = true
	}
	if sample.Value > g.Max {
		g.Max = sample.Value
	}
}

// Format returns value/min/max/avg.
func (g *GaugeSink) Format(_ float64) map[string]float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	result := map[string]float64{
		"value": g.Value,
		"min":   g.Min,
		"max":   g.Max,
	}
	if g.Count > 0 {
		result["avg"] = g.Sum / float64(g.Count)
	}
	return result
}

// IsEmpty reports whether no samples were seen.
func (g *GaugeSink) IsEmpty() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Count == 0
}

// RateSink tracks a pass/fail ratio; a non-zero sample value counts as a
// pass.
type RateSink struct {
	Trues int64
	Total int64
	mu    sync.Mutex
}

// Add records one sample.
func (r *RateSink) Add(sample Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Total++
	if sample.Value != 0 {
		r.Trues++
	}
}

// Format returns passes/fails/rate.
func (r *RateSink) Format(_ float64) map[string]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := map[string]float64{
		"passes": float64(r.Trues),
		"fails":  float64(r.Total - r.Trues),
	}
	if r.Total > 0 {
		result["rate"] = float64(r.Trues) / float64(r.Total)
	} else {
		result["rate"] = 0
	}
	return result
}

// IsEmpty reports whether no samples were seen.
func (r *RateSink) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Total == 0
}

// trendMaxMicros bounds the trend histogram at ten minutes, well beyond any
// batch deadline in use.
const trendMaxMicros = int64(10 * 60 * 1000 * 1000)

// TrendSink tracks a latency distribution in an HDR histogram. Sample
// values are milliseconds; internal resolution is microseconds.
type TrendSink struct {
	hist  *hdrhistogram.Histogram
	sum   float64
	count int64
	mu    sync.Mutex
}

// NewTrendSink creates an empty trend sink.
func NewTrendSink() *TrendSink {
	return &TrendSink{
		hist: hdrhistogram.New(1, trendMaxMicros, 3),
	}
}

// Add records one sample (milliseconds).
func (t *TrendSink) Add(sample Sample) {
	t.mu.Lock()
	defer t.mu.Unlock()

	micros := int64(sample.Value * 1000)
	if micros < 1 {
		micros = 1
	}
	if micros > trendMaxMicros {
		micros = trendMaxMicros
	}
	_ = t.hist.RecordValue(micros)
	t.sum += sample.Value
	t.count++
}

// Format returns count/min/max/avg and the p50..p99 percentiles, all in
// milliseconds.
func (t *TrendSink) Format(_ float64) map[string]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	result := map[string]float64{"count": float64(t.count)}
	if t.count == 0 {
		return result
	}
	toMs := func(micros int64) float64 { return float64(micros) / 1000 }
	result["min"] = toMs(t.hist.Min())
	result["max"] = toMs(t.hist.Max())
	result["avg"] = t.sum / float64(t.count)
	result["med"] = toMs(t.hist.ValueAtQuantile(50))
	result["p(90)"] = toMs(t.hist.ValueAtQuantile(90))
	result["p(95)"] = toMs(t.hist.ValueAtQuantile(95))
	result["p(99)"] = toMs(t.hist.ValueAtQuantile(99))
	return result
}

// Percentile returns the given percentile in milliseconds.
func (t *TrendSink) Percentile(p float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.count == 0 {
		return 0
	}
	return float64(t.hist.ValueAtQuantile(p)) / 1000
}

// IsEmpty reports whether no samples were seen.
func (t *TrendSink) IsEmpty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count == 0
}
