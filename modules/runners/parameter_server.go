package runners

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/ctxlog"
	"github.com/vk/trainkit/internal/engine"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// ManifestName is the file written next to an exported model.
const ManifestName = "manifest.yaml"

// Manifest describes an exported model.
type Manifest struct {
	component.ExportSpec `yaml:",inline"`
	Modeler              string    `yaml:"modeler"`
	ExportedAt           time.Time `yaml:"exported_at"`
}

// ParameterServer splits every global batch into one shard per device, runs
// the shards concurrently and joins them before the callbacks see the step.
// Scalar outputs are averaged over devices; list outputs are concatenated in
// device order.
type ParameterServer struct {
	cfg *config.Config
	in  component.Inputter
	m   component.Modeler
}

// NewParameterServer creates a parameter server runner.
func NewParameterServer(cfg *config.Config, in component.Inputter, m component.Modeler) *ParameterServer {
	return &ParameterServer{cfg: cfg, in: in, m: m}
}

func (r *ParameterServer) Name() string { return ParameterServerName }

// Run implements component.Runner.
func (r *ParameterServer) Run(ctx context.Context) (component.Result, error) {
	logger := ctxlog.FromContext(ctx).With("runner", ParameterServerName, "mode", r.cfg.Mode)
	ctx = ctxlog.WithLogger(ctx, logger)
	started := time.Now()

	if err := r.m.Prepare(ctx, r.in); err != nil {
		return component.Result{}, err
	}
	if r.cfg.Mode == config.ModeExport {
		return r.export(ctx, started)
	}

	maxSteps, err := r.in.MaxSteps()
	if err != nil {
		return component.Result{}, err
	}
	st := component.NewRunState(r.cfg, maxSteps)
	st.StartedAt = started
	if cp, ok := r.m.Network().Engine().(engine.Checkpointer); ok {
		st.Checkpointer = cp
	}
	cbs := r.m.Callbacks()

	if err := invoke(ctx, cbs, st, component.Callback.BeforeRun); err != nil {
		return component.Result{}, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	batches, errc := r.in.Batches(runCtx)

	steps, samples := 0, 0
	for b := range batches {
		st.Step = b.Step
		st.Batch = b
		st.StepStartedAt = time.Now()
		if err := invoke(ctx, cbs, st, component.Callback.BeforeStep); err != nil {
			return component.Result{}, err
		}
		out, err := r.step(runCtx, b, st)
		if err != nil {
			return component.Result{}, err
		}
		st.Outputs = out
		if err := invoke(ctx, cbs, st, component.Callback.AfterStep); err != nil {
			return component.Result{}, err
		}
		steps++
		samples += len(b.Samples)
	}
	if err := <-errc; err != nil {
		return component.Result{}, err
	}

	if err := invoke(ctx, cbs, st, component.Callback.AfterRun); err != nil {
		return component.Result{}, err
	}

	metrics := maps.Clone(st.Metrics)
	for k := range st.Outputs {
		if _, ok := metrics[k]; ok {
			continue
		}
		if v, ok := st.Outputs.Scalar(k); ok {
			metrics[k] = v
		}
	}
	res := component.Result{
		Mode:      r.cfg.Mode,
		Steps:     steps,
		Samples:   samples,
		Duration:  time.Since(started),
		Metrics:   metrics,
		Artifacts: st.Artifacts,
	}
	logger.Debug("Run loop finished.", "steps", steps, "samples", samples)
	return res, nil
}

// step fans the shards of one batch out to the devices.
func (r *ParameterServer) step(ctx context.Context, b component.Batch, st *component.RunState) (engine.Outputs, error) {
	shards := b.Shard(r.cfg.NumGPU)
	results := make([]engine.Outputs, len(shards))

	g, gctx := errgroup.WithContext(ctx)
	for i, shard := range shards {
		g.Go(func() error {
			out, err := r.m.Step(gctx, shard, i, st)
			if err != nil {
				return fmt.Errorf("step %d device %d: %w", b.Step, i, err)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Merge(results), nil
}

func (r *ParameterServer) export(ctx context.Context, started time.Time) (component.Result, error) {
	spec, err := r.m.Export(ctx)
	if err != nil {
		return component.Result{}, err
	}
	dir := filepath.Join(r.cfg.ModelDir, "export")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return component.Result{}, fmt.Errorf("failed to create export dir: %w", err)
	}
	out, err := yaml.Marshal(&Manifest{ExportSpec: spec, Modeler: r.m.Name(), ExportedAt: started.UTC()})
	if err != nil {
		return component.Result{}, fmt.Errorf("failed to encode manifest: %w", err)
	}
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return component.Result{}, fmt.Errorf("failed to write manifest: %w", err)
	}
	ctxlog.FromContext(ctx).Info("Model exported.", "manifest", path, "outputs", spec.Outputs)
	return component.Result{
		Mode:      config.ModeExport,
		Duration:  time.Since(started),
		Metrics:   map[string]float64{},
		Artifacts: []string{path},
	}, nil
}

func invoke(ctx context.Context, cbs []component.Callback, st *component.RunState,
	hook func(component.Callback, context.Context, *component.RunState) error) error {
	for _, cb := range cbs {
		if err := hook(cb, ctx, st); err != nil {
			return fmt.Errorf("callback %q: %w", cb.Name(), err)
		}
	}
	return nil
}

// Merge joins per-device outputs. Keys missing on some device are taken
// from the devices that have them.
func Merge(results []engine.Outputs) engine.Outputs {
	out := engine.Outputs{}
	if len(results) == 0 {
		return out
	}
	keys := map[string]struct{}{}
	for _, res := range results {
		for k := range res {
			keys[k] = struct{}{}
		}
	}
	for k := range keys {
		var (
			sum     float64
			n       int
			scalars = true
			strs    []string
			anys    []any
		)
		for _, res := range results {
			v, present := res[k]
			if !present {
				continue
			}
			if f, ok := res.Scalar(k); ok {
				sum += f
				n++
				continue
			}
			scalars = false
			switch t := v.(type) {
			case []string:
				strs = append(strs, t...)
			case []any:
				anys = append(anys, t...)
			default:
				anys = append(anys, t)
			}
		}
		switch {
		case scalars && n > 0:
			out[k] = sum / float64(n)
		case strs != nil && anys == nil:
			out[k] = strs
		default:
			for _, s := range strs {
				anys = append(anys, s)
			}
			out[k] = anys
		}
	}
	return out
}
