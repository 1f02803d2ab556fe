package callbacks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/ctxlog"
)

// Basic logs run boundaries and, in training, checkpoints the model every
// SaveCheckpointsSteps steps, keeping at most KeepCheckpointMax of them.
type Basic struct {
	Base
	cfg         *config.Config
	checkpoints []string
	lastSaved   int
}

// NewBasic creates a basic callback.
func NewBasic(name string, cfg *config.Config) *Basic {
	return &Basic{Base: Base{name: name}, cfg: cfg, lastSaved: -1}
}

// Checkpoints returns the retained checkpoint paths, oldest first.
func (b *Basic) Checkpoints() []string {
	return slices.Clone(b.checkpoints)
}

func (b *Basic) training() bool {
	return b.cfg.Mode == config.ModeTrain
}

// BeforeRun implements component.Callback.
func (b *Basic) BeforeRun(ctx context.Context, st *component.RunState) error {
	logger := ctxlog.FromContext(ctx)
	if b.training() && st.ModelDir != "" {
		if err := os.MkdirAll(st.ModelDir, 0o755); err != nil {
			return fmt.Errorf("failed to create model dir '%s': %w", st.ModelDir, err)
		}
	}
	logger.Info("Run started.", "mode", st.Mode, "max_steps", st.MaxSteps, "global_batch_size", st.GlobalBatchSize)
	return nil
}

// AfterStep implements component.Callback.
func (b *Basic) AfterStep(ctx context.Context, st *component.RunState) error {
	if b.training() && every(st.Step, b.cfg.SaveCheckpointsSteps) {
		return b.save(ctx, st)
	}
	return nil
}

// AfterRun implements component.Callback. Training always ends with a
// checkpoint of the final step.
func (b *Basic) AfterRun(ctx context.Context, st *component.RunState) error {
	if b.training() && st.MaxSteps > 0 && b.lastSaved != st.Step {
		if err := b.save(ctx, st); err != nil {
			return err
		}
	}
	ctxlog.FromContext(ctx).Info("Run finished.", "mode", st.Mode, "steps", st.Step+1)
	return nil
}

func (b *Basic) save(ctx context.Context, st *component.RunState) error {
	logger := ctxlog.FromContext(ctx)
	if st.Checkpointer == nil {
		logger.Debug("Engine cannot checkpoint, skipping.", "step", st.Step)
		return nil
	}
	path, err := st.Checkpointer.SaveCheckpoint(ctx, st.ModelDir, st.Step+1)
	if err != nil {
		return fmt.Errorf("checkpoint at step %d: %w", st.Step+1, err)
	}
	b.lastSaved = st.Step
	b.checkpoints = append(b.checkpoints, path)
	st.Artifacts = append(st.Artifacts, path)
	logger.Info("Checkpoint saved.", "path", path)

	keep := b.cfg.KeepCheckpointMax
	for keep > 0 && len(b.checkpoints) > keep {
		old := b.checkpoints[0]
		b.checkpoints = b.checkpoints[1:]
		if err := os.RemoveAll(old); err != nil {
			return fmt.Errorf("failed to prune checkpoint '%s': %w", old, err)
		}
		st.Artifacts = slices.DeleteFunc(st.Artifacts, func(a string) bool { return a == old })
		logger.Debug("Checkpoint pruned.", "path", filepath.Base(old))
	}
	return nil
}
