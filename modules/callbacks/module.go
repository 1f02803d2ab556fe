// Package callbacks provides the built-in run observers: logging, metrics,
// checkpoints, summaries, result display and live broadcast.
package callbacks

import (
	"context"

	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers every built-in callback under its command-line name.
func (m *Module) Register(r *registry.Registry) {
	factories := map[string]registry.CallbackFactory{
		"train_basic":    func(cfg *config.Config) (component.Callback, error) { return NewBasic("train_basic", cfg), nil },
		"eval_basic":     func(cfg *config.Config) (component.Callback, error) { return NewBasic("eval_basic", cfg), nil },
		"infer_basic":    func(cfg *config.Config) (component.Callback, error) { return NewBasic("infer_basic", cfg), nil },
		"train_loss":     func(cfg *config.Config) (component.Callback, error) { return NewMetric("train_loss", "loss", cfg), nil },
		"eval_loss":      func(cfg *config.Config) (component.Callback, error) { return NewMetric("eval_loss", "loss", cfg), nil },
		"train_accuracy": func(cfg *config.Config) (component.Callback, error) { return NewMetric("train_accuracy", "accuracy", cfg), nil },
		"eval_accuracy":  func(cfg *config.Config) (component.Callback, error) { return NewMetric("eval_accuracy", "accuracy", cfg), nil },
		"train_speed":    func(cfg *config.Config) (component.Callback, error) { return NewSpeed("train_speed", cfg), nil },
		"eval_speed":     func(cfg *config.Config) (component.Callback, error) { return NewSpeed("eval_speed", cfg), nil },
		"train_summary":  func(cfg *config.Config) (component.Callback, error) { return NewSummary("train_summary", cfg), nil },
		"eval_summary":   func(cfg *config.Config) (component.Callback, error) { return NewSummary("eval_summary", cfg), nil },
		"infer_display_image_segmentation": func(*config.Config) (component.Callback, error) {
			return NewDisplay("infer_display_image_segmentation", "image", "classes"), nil
		},
		"infer_display_style_transfer": func(*config.Config) (component.Callback, error) {
			return NewDisplay("infer_display_style_transfer", "image", "outputs"), nil
		},
		"infer_display_text_generation": func(*config.Config) (component.Callback, error) {
			return NewDisplay("infer_display_text_generation", "text", "probabilities"), nil
		},
		"train_broadcast": func(cfg *config.Config) (component.Callback, error) { return NewBroadcast(cfg) },
	}
	for name, f := range factories {
		r.RegisterCallback(name, f)
	}
}

// Base implements every hook as a no-op. Callbacks embed it and override
// the hooks they need.
type Base struct {
	name string
}

func (b Base) Name() string                                        { return b.name }
func (Base) BeforeRun(context.Context, *component.RunState) error  { return nil }
func (Base) BeforeStep(context.Context, *component.RunState) error { return nil }
func (Base) AfterStep(context.Context, *component.RunState) error  { return nil }
func (Base) AfterRun(context.Context, *component.RunState) error   { return nil }

// every reports whether the 0-based step completes a period of n steps.
func every(step, n int) bool {
	return n > 0 && (step+1)%n == 0
}
