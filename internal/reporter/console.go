package reporter

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/internal/metrics"
)

// Console renders the run summary as a human-readable table.
type Console struct {
	out io.Writer
}

// NewConsole creates a console reporter writing to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleTo creates a console reporter writing to w.
func NewConsoleTo(w io.Writer) *Console {
	return &Console{out: w}
}

// Name implements Reporter.
func (c *Console) Name() string { return "console" }

// Report implements Reporter.
func (c *Console) Report(s *metrics.Summary) error {
	w := c.out

	fmt.Fprintf(w, "\nrun duration: %s\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "batches:      %d total, %d full, %d partial, %d failed\n",
		s.TotalBatches, s.FullSuccess, s.PartialSuccess, s.TotalFailure)
	fmt.Fprintf(w, "shard ok rate: %.2f%%\n", s.ShardOkRate*100)
	if s.DroppedSamples > 0 {
		fmt.Fprintf(w, "dropped samples: %d\n", s.DroppedSamples)
	}

	if s.BatchLatency != nil {
		fmt.Fprintf(w, "\nbatch latency (ms): %s\n", formatTrend(s.BatchLatency))
	}

	if len(s.Shards) > 0 {
		fmt.Fprintf(w, "\nper-shard latency (ms):\n")
		for _, shard := range s.Shards {
			fmt.Fprintf(w, "  %-20s %s\n", shard.Shard, formatTrend(shard.Stats))
		}
	}

	if len(s.Errors) > 0 {
		fmt.Fprintf(w, "\nerrors:\n")
		for status, stats := range s.Errors {
			fmt.Fprintf(w, "  %-18s %d", status, stats.Count)
			shards := make([]string, 0, len(stats.ByShard))
			for shard := range stats.ByShard {
				shards = append(shards, shard)
			}
			sort.Strings(shards)
			for _, shard := range shards {
				fmt.Fprintf(w, "  %s=%d", shard, stats.ByShard[shard])
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}

func formatTrend(stats map[string]float64) string {
	keys := []string{"min", "med", "avg", "p(90)", "p(95)", "p(99)", "max"}
	out := ""
	for _, k := range keys {
		if v, ok := stats[k]; ok {
			out += fmt.Sprintf("%s=%.1f ", k, v)
		}
	}
	if count, ok := stats["count"]; ok {
		out += fmt.Sprintf("(n=%.0f)", count)
	}
	return out
}
