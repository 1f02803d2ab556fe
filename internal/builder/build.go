package builder

import (
	"context"
	"fmt"

	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/ctxlog"
	"github.com/vk/trainkit/internal/registry"
)

// NoAugmenter disables augmentation when used as the augmenter name.
const NoAugmenter = "none"

// plan holds the resolved factories of one build.
type plan struct {
	augmenter registry.AugmenterFactory
	network   registry.NetworkFactory
	engine    registry.EngineFactory
	callbacks []registry.CallbackFactory
	inputter  registry.InputterFactory
	modeler   registry.ModelerFactory
	runner    registry.RunnerFactory
}

// Refs lists every component a configuration references, in construction
// order.
func Refs(cfg *config.Config) []registry.Ref {
	var refs []registry.Ref
	if usesAugmenter(cfg) {
		refs = append(refs, registry.Ref{Category: registry.CategoryAugmenter, Name: cfg.Augmenter})
	}
	refs = append(refs,
		registry.Ref{Category: registry.CategoryNetwork, Name: cfg.Network},
		registry.Ref{Category: registry.CategoryEngine, Name: cfg.Engine},
	)
	for _, name := range cfg.CallbackNames() {
		refs = append(refs, registry.Ref{Category: registry.CategoryCallback, Name: name})
	}
	return append(refs,
		registry.Ref{Category: registry.CategoryInputter, Name: cfg.Inputter},
		registry.Ref{Category: registry.CategoryModeler, Name: cfg.Modeler},
		registry.Ref{Category: registry.CategoryRunner, Name: cfg.Runner},
	)
}

func usesAugmenter(cfg *config.Config) bool {
	return cfg.Augmenter != "" && cfg.Augmenter != NoAugmenter
}

// Build validates cfg, resolves every referenced component and constructs
// the pipeline. On error no pipeline is returned.
func Build(ctx context.Context, cfg *config.Config, reg *registry.Registry) (*component.Pipeline, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting pipeline construction.", "mode", cfg.Mode)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := reg.Check(Refs(cfg)...); err != nil {
		return nil, err
	}
	p, err := resolvePlan(cfg, reg)
	if err != nil {
		return nil, err
	}
	logger.Debug("Build: All component names resolved.")

	pipeline, err := p.construct(cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("Build: Pipeline constructed.", "trace", pipeline.Trace)
	return pipeline, nil
}

func resolvePlan(cfg *config.Config, reg *registry.Registry) (*plan, error) {
	var (
		p   plan
		err error
	)
	if usesAugmenter(cfg) {
		if p.augmenter, err = reg.Augmenter(cfg.Augmenter); err != nil {
			return nil, err
		}
	}
	if p.network, err = reg.Network(cfg.Network); err != nil {
		return nil, err
	}
	if p.engine, err = reg.Engine(cfg.Engine); err != nil {
		return nil, err
	}
	for _, name := range cfg.CallbackNames() {
		f, err := reg.Callback(name)
		if err != nil {
			return nil, err
		}
		p.callbacks = append(p.callbacks, f)
	}
	if p.inputter, err = reg.Inputter(cfg.Inputter); err != nil {
		return nil, err
	}
	if p.modeler, err = reg.Modeler(cfg.Modeler); err != nil {
		return nil, err
	}
	if p.runner, err = reg.Runner(cfg.Runner); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *plan) construct(cfg *config.Config) (*component.Pipeline, error) {
	out := &component.Pipeline{Config: cfg}
	trace := func(cat registry.Category, name string) {
		out.Trace = append(out.Trace, string(cat)+"/"+name)
	}

	if p.augmenter != nil {
		aug, err := p.augmenter(cfg)
		if err != nil {
			return nil, buildError(registry.CategoryAugmenter, cfg.Augmenter, err)
		}
		out.Augmenter = aug
		trace(registry.CategoryAugmenter, cfg.Augmenter)
	}

	eng, err := p.engine(cfg)
	if err != nil {
		return nil, buildError(registry.CategoryEngine, cfg.Engine, err)
	}
	if out.Network, err = p.network(cfg, eng); err != nil {
		return nil, buildError(registry.CategoryNetwork, cfg.Network, err)
	}
	trace(registry.CategoryNetwork, cfg.Network)

	names := cfg.CallbackNames()
	out.Callbacks = make([]component.Callback, 0, len(p.callbacks))
	for i, f := range p.callbacks {
		cb, err := f(cfg)
		if err != nil {
			return nil, buildError(registry.CategoryCallback, names[i], err)
		}
		out.Callbacks = append(out.Callbacks, cb)
		trace(registry.CategoryCallback, names[i])
	}

	if out.Inputter, err = p.inputter(cfg, out.Augmenter); err != nil {
		return nil, buildError(registry.CategoryInputter, cfg.Inputter, err)
	}
	trace(registry.CategoryInputter, cfg.Inputter)

	if out.Modeler, err = p.modeler(cfg, out.Network, out.Callbacks); err != nil {
		return nil, buildError(registry.CategoryModeler, cfg.Modeler, err)
	}
	trace(registry.CategoryModeler, cfg.Modeler)

	if out.Runner, err = p.runner(cfg, out.Inputter, out.Modeler); err != nil {
		return nil, buildError(registry.CategoryRunner, cfg.Runner, err)
	}
	trace(registry.CategoryRunner, cfg.Runner)

	return out, nil
}

func buildError(cat registry.Category, name string, err error) error {
	return fmt.Errorf("failed to construct %s %q: %w", cat, name, err)
}
