// Package tuner runs a grid search over learning rate and batch size by
// training one trial per combination.
package tuner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/ctxlog"
	"github.com/vk/trainkit/internal/job"
)

// LossMetric is the result metric trials are ranked by.
const LossMetric = "loss"

// ErrNoTrials is returned when no trial produced a loss.
var ErrNoTrials = errors.New("no trial reported a loss")

// TrialFunc trains with cfg and returns the run result.
type TrialFunc func(ctx context.Context, cfg *config.Config) (component.Result, error)

// Trial is one point of the grid.
type Trial struct {
	ID           uuid.UUID
	LearningRate float64
	BatchSize    int
	ModelDir     string
	Loss         float64
	Err          error
}

// Best reports the winning trial along with every trial that ran.
type Best struct {
	Trial
	Trials []Trial
}

// Grid expands the tune lists of cfg. Empty lists fall back to the
// configured learning rate and batch size.
func Grid(cfg *config.Config) ([]float64, []int, error) {
	lrs, err := config.ParseFloats(cfg.TuneLearningRates)
	if err != nil {
		return nil, nil, fmt.Errorf("tune_learning_rates: %w", err)
	}
	if len(lrs) == 0 {
		lrs = []float64{cfg.LearningRate}
	}
	sizes, err := config.ParseInts(cfg.TuneBatchSizes)
	if err != nil {
		return nil, nil, fmt.Errorf("tune_batch_sizes: %w", err)
	}
	if len(sizes) == 0 {
		sizes = []int{cfg.BatchSizePerGPU}
	}
	return lrs, sizes, nil
}

// Tune trains every grid point in turn and returns the one with the lowest
// final loss. A trial whose job fails while running is recorded and the
// search goes on. Any other trial error, such as an unknown component or an
// invalid configuration, would fail every trial alike and is returned at
// once, as is cancellation.
func Tune(ctx context.Context, cfg *config.Config, trial TrialFunc) (Best, error) {
	logger := ctxlog.FromContext(ctx)
	lrs, sizes, err := Grid(cfg)
	if err != nil {
		return Best{}, err
	}
	logger.Info("Tuning started.", "learning_rates", lrs, "batch_sizes", sizes)

	best := Best{Trial: Trial{Loss: math.Inf(1)}}
	found := false
	for _, lr := range lrs {
		for _, bs := range sizes {
			if err := ctx.Err(); err != nil {
				return best, err
			}
			t := Trial{ID: uuid.New(), LearningRate: lr, BatchSize: bs}
			t.ModelDir = filepath.Join(cfg.ModelDir, "tune", t.ID.String())

			tcfg := cfg.Clone()
			tcfg.Mode = config.ModeTrain
			tcfg.LearningRate = lr
			tcfg.BatchSizePerGPU = bs
			tcfg.ModelDir = t.ModelDir

			tctx := ctxlog.With(ctx, "trial_id", t.ID.String())
			res, err := trial(tctx, tcfg)
			var execErr *job.ExecutionError
			if err != nil && !errors.As(err, &execErr) {
				return best, fmt.Errorf("trial %s: %w", t.ID, err)
			}
			switch loss, ok := res.Metrics[LossMetric]; {
			case err != nil:
				t.Err = err
				ctxlog.FromContext(tctx).Warn("Trial failed.", "error", err)
			case !ok:
				t.Err = fmt.Errorf("trial %s reported no %s metric", t.ID, LossMetric)
				ctxlog.FromContext(tctx).Warn("Trial reported no loss.")
			default:
				t.Loss = loss
				ctxlog.FromContext(tctx).Info("Trial finished.", "learning_rate", lr, "batch_size", bs, "loss", loss)
				if loss < best.Loss {
					best.Trial = t
					found = true
				}
			}
			best.Trials = append(best.Trials, t)
		}
	}
	if !found {
		return best, ErrNoTrials
	}
	logger.Info("Tuning finished.",
		"best_trial", best.ID.String(),
		"learning_rate", strconv.FormatFloat(best.LearningRate, 'g', -1, 64),
		"batch_size", best.BatchSize,
		"loss", best.Loss,
	)
	return best, nil
}
