package testutil

import (
	"context"
	"sync"

	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/engine"
	"github.com/vk/trainkit/internal/registry"
)

// Recorder registers fake components and records, in order, every factory
// call and every callback hook.
type Recorder struct {
	mu     sync.Mutex
	Built  []string
	Hooks  []string
	RunErr error
}

func (r *Recorder) record(dst *[]string, s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*dst = append(*dst, s)
}

// BuiltSnapshot returns a copy of the construction record.
func (r *Recorder) BuiltSnapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.Built...)
}

// Module returns a module registering one fake per category under name
// "fake", plus one fake callback per given callback name.
func (r *Recorder) Module(callbacks ...string) registry.Module {
	m := &SimpleModule{
		Augmenters: map[string]registry.AugmenterFactory{
			"fake": func(*config.Config) (component.Augmenter, error) {
				r.record(&r.Built, "augmenter/fake")
				return FakeAugmenter{}, nil
			},
		},
		Networks: map[string]registry.NetworkFactory{
			"fake": func(_ *config.Config, eng engine.Engine) (component.Network, error) {
				r.record(&r.Built, "network/fake")
				return &FakeNetwork{Eng: eng}, nil
			},
		},
		Engines: map[string]registry.EngineFactory{
			"fake": func(*config.Config) (engine.Engine, error) {
				r.record(&r.Built, "engine/fake")
				return EngineFunc(func(context.Context, engine.Request) (engine.Outputs, error) {
					return engine.Outputs{}, nil
				}), nil
			},
		},
		Callbacks: map[string]registry.CallbackFactory{},
		Inputters: map[string]registry.InputterFactory{
			"fake": func(cfg *config.Config, _ component.Augmenter) (component.Inputter, error) {
				r.record(&r.Built, "inputter/fake")
				return &FakeInputter{N: len(cfg.TestSamples)}, nil
			},
		},
		Modelers: map[string]registry.ModelerFactory{
			"fake": func(_ *config.Config, net component.Network, cbs []component.Callback) (component.Modeler, error) {
				r.record(&r.Built, "modeler/fake")
				return &FakeModeler{Net: net, Cbs: cbs}, nil
			},
		},
		Runners: map[string]registry.RunnerFactory{
			"fake": func(cfg *config.Config, _ component.Inputter, m component.Modeler) (component.Runner, error) {
				r.record(&r.Built, "runner/fake")
				return &FakeRunner{rec: r, cfg: cfg, m: m}, nil
			},
		},
	}
	for _, name := range callbacks {
		m.Callbacks[name] = func(*config.Config) (component.Callback, error) {
			r.record(&r.Built, "callback/"+name)
			return &FakeCallback{name: name, rec: r}, nil
		}
	}
	return m
}

// FakeConfig returns a normalized config that selects the fakes.
func FakeConfig(mode config.Mode, callbacks ...string) *config.Config {
	return config.Normalize(&config.Config{
		Mode:            mode,
		Augmenter:       "fake",
		Network:         "fake",
		Engine:          "fake",
		Inputter:        "fake",
		Modeler:         "fake",
		Runner:          "fake",
		DatasetMeta:     []string{"/data/meta.csv"},
		TestSamples:     []string{"/data/a.jpg"},
		TrainCallbacks:  callbacks,
		EvalCallbacks:   callbacks,
		InferCallbacks:  callbacks,
		BatchSizePerGPU: 1,
		NumGPU:          1,
		Epochs:          1,
	})
}

// EngineFunc adapts a function to engine.Engine.
type EngineFunc func(ctx context.Context, req engine.Request) (engine.Outputs, error)

// Run implements engine.Engine.
func (f EngineFunc) Run(ctx context.Context, req engine.Request) (engine.Outputs, error) {
	return f(ctx, req)
}

type FakeAugmenter struct{}

func (FakeAugmenter) Name() string { return "fake" }

func (FakeAugmenter) Augment(s component.Sample, _ component.AugmentOptions) component.Sample {
	return s
}

type FakeNetwork struct{ Eng engine.Engine }

func (n *FakeNetwork) Name() string          { return "fake" }
func (n *FakeNetwork) Engine() engine.Engine { return n.Eng }

func (n *FakeNetwork) Forward(ctx context.Context, req engine.Request) (engine.Outputs, error) {
	return n.Eng.Run(ctx, req)
}

type FakeInputter struct{ N int }

func (i *FakeInputter) Name() string             { return "fake" }
func (i *FakeInputter) NumSamples() (int, error) { return i.N, nil }
func (i *FakeInputter) MaxSteps() (int, error)   { return i.N, nil }

func (i *FakeInputter) Samples() ([]component.Sample, error) {
	return make([]component.Sample, i.N), nil
}

func (i *FakeInputter) Batches(context.Context) (<-chan component.Batch, <-chan error) {
	b, e := make(chan component.Batch), make(chan error)
	close(b)
	close(e)
	return b, e
}

type FakeModeler struct {
	Net component.Network
	Cbs []component.Callback
}

func (m *FakeModeler) Name() string                                    { return "fake" }
func (m *FakeModeler) Network() component.Network                      { return m.Net }
func (m *FakeModeler) Callbacks() []component.Callback                 { return m.Cbs }
func (m *FakeModeler) Prepare(context.Context, component.Inputter) error { return nil }

func (m *FakeModeler) Step(context.Context, []component.Sample, int, *component.RunState) (engine.Outputs, error) {
	return engine.Outputs{}, nil
}

func (m *FakeModeler) Export(context.Context) (component.ExportSpec, error) {
	return component.ExportSpec{Network: "fake"}, nil
}

// FakeRunner invokes each callback hook once and returns Recorder.RunErr.
type FakeRunner struct {
	rec *Recorder
	cfg *config.Config
	m   component.Modeler
}

func (r *FakeRunner) Name() string { return "fake" }

func (r *FakeRunner) Run(ctx context.Context) (component.Result, error) {
	st := component.NewRunState(r.cfg, 1)
	for _, cb := range r.m.Callbacks() {
		if err := cb.BeforeRun(ctx, st); err != nil {
			return component.Result{}, err
		}
	}
	for _, cb := range r.m.Callbacks() {
		if err := cb.AfterRun(ctx, st); err != nil {
			return component.Result{}, err
		}
	}
	return component.Result{Mode: r.cfg.Mode, Steps: 1}, r.rec.RunErr
}

type FakeCallback struct {
	name string
	rec  *Recorder
}

func (c *FakeCallback) Name() string { return c.name }

func (c *FakeCallback) BeforeRun(context.Context, *component.RunState) error {
	c.rec.record(&c.rec.Hooks, c.name+".BeforeRun")
	return nil
}

func (c *FakeCallback) BeforeStep(context.Context, *component.RunState) error { return nil }
func (c *FakeCallback) AfterStep(context.Context, *component.RunState) error  { return nil }

func (c *FakeCallback) AfterRun(context.Context, *component.RunState) error {
	c.rec.record(&c.rec.Hooks, c.name+".AfterRun")
	return nil
}
