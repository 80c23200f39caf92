package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/internal/backend/weaviate"
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/internal/loadgen"
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/internal/metrics"
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/internal/reporter"
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/fanout"
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/logger"
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/query"
)

var runFlags struct {
	queryFile  string
	vus        int
	duration   time.Duration
	iterations int
	alpha      float64
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a load test: every iteration fans one logical query out to all shards",
	RunE:  runLoadTest,
}

func init() {
	runCmd.Flags().StringVar(&runFlags.queryFile, "queries", "", "query file (JSON), overrides config")
	runCmd.Flags().IntVar(&runFlags.vus, "vus", 0, "virtual users, overrides config")
	runCmd.Flags().DurationVar(&runFlags.duration, "duration", 0, "run duration, overrides config")
	runCmd.Flags().IntVar(&runFlags.iterations, "iterations", 0, "iterations per VU, overrides config")
	runCmd.Flags().Float64Var(&runFlags.alpha, "alpha", -1, "hybrid alpha for query files without one (0 = bm25)")
}

func runLoadTest(cmd *cobra.Command, args []string) error {
	cfg := configFrom(cmd.Context())

	if runFlags.queryFile != "" {
		cfg.Load.QueryFile = runFlags.queryFile
	}
	if runFlags.vus > 0 {
		cfg.Load.VUs = runFlags.vus
	}
	if runFlags.duration > 0 {
		cfg.Load.Duration = runFlags.duration
	}
	if runFlags.iterations > 0 {
		cfg.Load.Iterations = runFlags.iterations
	}
	if runFlags.alpha >= 0 {
		cfg.Load.Alpha = runFlags.alpha
	}
	if cfg.Load.QueryFile == "" {
		return fmt.Errorf("a query file is required (--queries or load.query_file)")
	}
	if cfg.Load.Duration <= 0 && cfg.Load.Iterations <= 0 {
		return loadgen.ErrNoStopCondition
	}

	queries, err := query.LoadFile(cfg.Load.QueryFile, cfg.Load.Alpha)
	if err != nil {
		return err
	}
	logger.L().Info("query file loaded",
		zap.String("path", cfg.Load.QueryFile),
		zap.Int("queries", queries.Len()))

	recorder := metrics.NewBatchRecorder()
	coord := fanout.New(
		weaviate.NewBuilder(),
		weaviate.NewClient(cfg.Backend),
		fanout.WithMerger(mergerFor(cfg.Fanout.Merge)),
		fanout.WithSink(recorder),
	)
	targets := cfg.Targets()
	deadline := cfg.Fanout.Deadline

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logger.L().Warn("interrupt received, stopping run")
		cancel()
	}()

	runner := loadgen.NewRunner()
	err = runner.Run(ctx, loadgen.Options{
		VUs:        cfg.Load.VUs,
		Duration:   cfg.Load.Duration,
		Iterations: cfg.Load.Iterations,
	}, func(ctx context.Context, vuID, iteration int) (*fanout.BatchOutcome, error) {
		return coord.Execute(ctx, queries.Pick(), targets, deadline)
	})
	if err != nil {
		return err
	}

	recorder.Close()
	summary := recorder.Summarize()

	for _, rc := range cfg.Reporters {
		rep, err := reporter.DefaultRegistry.Create(rc.Type, rc.Path)
		if err != nil {
			return err
		}
		if err := rep.Report(summary); err != nil {
			return fmt.Errorf("reporter %s: %w", rep.Name(), err)
		}
	}

	return checkThresholds(summary, cfg.Thresholds)
}

func mergerFor(name string) fanout.Merger {
	if name == "concat" {
		return fanout.ConcatMerger{}
	}
	return weaviate.ScoreMerger{}
}

func checkThresholds(summary *metrics.Summary, expressions []string) error {
	if len(expressions) == 0 {
		return nil
	}
	failed := 0
	for _, r := range metrics.EvaluateThresholds(summary, expressions) {
		if r.Passed {
			logger.L().Info("threshold passed",
				zap.String("expression", r.Expression),
				zap.Float64("value", r.Value))
			continue
		}
		failed++
		logger.L().Error("threshold failed",
			zap.String("expression", r.Expression),
			zap.Float64("value", r.Value),
			zap.String("error", r.Err))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d thresholds failed", failed, len(expressions))
	}
	return nil
}
