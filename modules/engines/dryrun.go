package engines

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/vk/trainkit/internal/ctxlog"
	"github.com/vk/trainkit/internal/engine"
)

const defaultLearningRate = 0.1

// DryRun answers every request with deterministic synthetic values. Loss
// decays and accuracy rises with the step; a larger learning rate converges
// faster. It never touches real tensors.
type DryRun struct {
	calls atomic.Int64
}

// NewDryRun creates a dry-run engine.
func NewDryRun() *DryRun {
	return &DryRun{}
}

// Calls reports how many requests the engine has served.
func (e *DryRun) Calls() int64 {
	return e.calls.Load()
}

// Run implements engine.Engine.
func (e *DryRun) Run(ctx context.Context, req engine.Request) (engine.Outputs, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.calls.Add(1)

	lr := defaultLearningRate
	if v, ok := req.Hyper["learning_rate"].(float64); ok {
		lr = v
	}
	progress := lr * float64(req.Step+1)

	n := shardSize(req.Inputs)
	out := engine.Outputs{}
	for _, f := range req.Fetches {
		switch f {
		case "loss":
			out[f] = 2.0 / (1.0 + progress)
		case "accuracy":
			out[f] = 1.0 - 0.5/(1.0+progress)
		case "learning_rate":
			out[f] = lr
		case "grads":
			out[f] = 0.0
		default:
			values := make([]string, n)
			for i := range values {
				values[i] = fmt.Sprintf("%s:%d:%d", f, req.DeviceID, i)
			}
			out[f] = values
		}
	}
	return out, nil
}

// SaveCheckpoint implements engine.Checkpointer by writing a small marker
// file named after the step.
func (e *DryRun) SaveCheckpoint(ctx context.Context, dir string, step int) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create checkpoint dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("model.ckpt-%d", step))
	if err := os.WriteFile(path, []byte(fmt.Sprintf("step: %d\n", step)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write checkpoint: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Checkpoint written.", "path", path)
	return path, nil
}

func shardSize(inputs map[string][]string) int {
	n := 0
	for _, col := range inputs {
		n = max(n, len(col))
	}
	return n
}
