package reporter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"

	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/internal/metrics"
)

// CSVFile writes the per-shard latency table to a CSV file, one row per
// shard plus an aggregate batch row.
type CSVFile struct {
	path string
}

// NewCSVFile creates a CSV file reporter.
func NewCSVFile(path string) (*CSVFile, error) {
	if path == "" {
		return nil, errors.New("csv reporter requires a path")
	}
	return &CSVFile{path: path}, nil
}

// Name implements Reporter.
func (c *CSVFile) Name() string { return "csv" }

var csvHeader = []string{"scope", "count", "min_ms", "med_ms", "avg_ms", "p90_ms", "p95_ms", "p99_ms", "max_ms"}

// Report implements Reporter.
func (c *CSVFile) Report(s *metrics.Summary) error {
	f, err := os.Create(c.path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}

	if s.BatchLatency != nil {
		if err := w.Write(row("batch", s.BatchLatency)); err != nil {
			return err
		}
	}
	for _, shard := range s.Shards {
		if err := w.Write(row(shard.Shard, shard.Stats)); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func row(scope string, stats map[string]float64) []string {
	cell := func(key string) string {
		if v, ok := stats[key]; ok {
			return fmt.Sprintf("%.2f", v)
		}
		return ""
	}
	return []string{
		scope,
		fmt.Sprintf("%.0f", stats["count"]),
		cell("min"), cell("med"), cell("avg"),
		cell("p(90)"), cell("p(95)"), cell("p(99)"),
		cell("max"),
	}
}
