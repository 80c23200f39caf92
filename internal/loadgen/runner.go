// Package loadgen drives fan-out batches at load: a fixed set of virtual
// users, each issuing one logical query per iteration.
package loadgen

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/fanout"
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/logger"
)

// IterationFunc executes one unit of work for a VU and returns the batch it
// produced. Batch-level failures are data inside the outcome; an error means
// the iteration could not run at all.
type IterationFunc func(ctx context.Context, vuID, iteration int) (*fanout.BatchOutcome, error)

// OnIterationFunc observes every completed iteration.
type OnIterationFunc func(vuID, iteration int, batch *fanout.BatchOutcome, elapsed time.Duration, err error)

// Options configures one load run.
type Options struct {
	// VUs is the number of concurrent virtual users.
	VUs int
	// Duration stops the run after the given wall time, when positive.
	Duration time.Duration
	// Iterations caps iterations per VU, when positive. At least one of
	// Duration and Iterations must be set.
	Iterations int
	// OnIteration is invoked after every iteration, when set.
	OnIteration OnIterationFunc
}

// ErrNoStopCondition is returned when neither duration nor iterations is
// set; the run would never end.
var ErrNoStopCondition = errors.New("loadgen: either duration or iterations must be set")

// Runner executes constant-VUs load runs. Each VU loops independently;
// batches from distinct VUs never serialize on a shared lock.
type Runner struct {
	activeVUs  atomic.Int32
	iterations atomic.Int64
}

// NewRunner creates a Runner.
func NewRunner() *Runner {
	return &Runner{}
}

// ActiveVUs returns the number of currently running VUs.
func (r *Runner) ActiveVUs() int { return int(r.activeVUs.Load()) }

// CompletedIterations returns the total iterations across all VUs.
func (r *Runner) CompletedIterations() int64 { return r.iterations.Load() }

// Run starts all VUs and blocks until every VU finished or ctx is
// cancelled.
func (r *Runner) Run(ctx context.Context, opts Options, iterate IterationFunc) error {
	if iterate == nil {
		return errors.New("loadgen: nil iteration func")
	}
	vus := opts.VUs
	if vus <= 0 {
		vus = 1
	}
	if opts.Duration <= 0 && opts.Iterations <= 0 {
		return ErrNoStopCondition
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if opts.Duration > 0 {
		runCtx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	logger.L().Info("load run starting",
		zap.Int("vus", vus),
		zap.Duration("duration", opts.Duration),
		zap.Int("iterations_per_vu", opts.Iterations))

	var wg sync.WaitGroup
	for i := 0; i < vus; i++ {
		wg.Add(1)
		go r.runVU(runCtx, i, opts, iterate, &wg)
	}
	wg.Wait()

	logger.L().Info("load run finished",
		zap.Int64("total_iterations", r.iterations.Load()))
	return nil
}

func (r *Runner) runVU(ctx context.Context, vuID int, opts Options, iterate IterationFunc, wg *sync.WaitGroup) {
	r.activeVUs.Add(1)
	defer func() {
		r.activeVUs.Add(-1)
		wg.Done()
	}()

	for iteration := 0; ; iteration++ {
		if opts.Iterations > 0 && iteration >= opts.Iterations {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		start := time.Now()
		batch, err := iterate(ctx, vuID, iteration)
		elapsed := time.Since(start)

		// An iteration aborted by run shutdown is not a result.
		if err != nil && ctx.Err() != nil {
			return
		}

		r.iterations.Add(1)
		if opts.OnIteration != nil {
			opts.OnIteration(vuID, iteration, batch, elapsed, err)
		}
		if err != nil {
			logger.L().Warn("iteration failed",
				zap.Int("vu", vuID),
				zap.Int("iteration", iteration),
				zap.Error(err))
		}
	}
}
