package modelers

import (
	"context"
	"fmt"
	"maps"

	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/ctxlog"
	"github.com/vk/trainkit/internal/engine"
)

// modeler holds the mode handling shared by every built-in modeler. The
// concrete modelers only differ in their fetches, export signature and
// static hyperparameters.
type modeler struct {
	name     string
	cfg      *config.Config
	net      component.Network
	cbs      []component.Callback
	fetches  map[config.Mode][]string
	export   component.ExportSpec
	schedule *Schedule
	hyper    map[string]any
}

func newModeler(name string, cfg *config.Config, net component.Network, cbs []component.Callback) (*modeler, error) {
	sched, err := NewSchedule(cfg)
	if err != nil {
		return nil, err
	}
	m := &modeler{
		name:     name,
		cfg:      cfg,
		net:      net,
		cbs:      cbs,
		schedule: sched,
		hyper: map[string]any{
			"optimizer":               cfg.Optimizer,
			"l2_weight_decay":         cfg.L2WeightDecay,
			"skip_l2_loss_vars":       cfg.SkipL2LossVars,
			"trainable_var_list":      cfg.TrainableVarList,
			"skip_trainable_var_list": cfg.SkipTrainableVarList,
			"pretrained_dir":          cfg.PretrainedDir,
			"skip_pretrained_vars":    cfg.SkipPretrainedVarList,
			"batch_size_per_gpu":      cfg.BatchSizePerGPU,
			"data_format":             cfg.DataFormat,
		},
	}
	return m, nil
}

func (m *modeler) Name() string                    { return m.name }
func (m *modeler) Network() component.Network      { return m.net }
func (m *modeler) Callbacks() []component.Callback { return m.cbs }
func (m *modeler) set(key string, value any)       { m.hyper[key] = value }

// Prepare reads the sample count and, for training, converts the learning
// rate boundaries from epochs to steps.
func (m *modeler) Prepare(ctx context.Context, in component.Inputter) error {
	n, err := in.NumSamples()
	if err != nil {
		return fmt.Errorf("modeler %q: %w", m.name, err)
	}
	m.set("num_samples", n)
	if gbs := m.cfg.GlobalBatchSize(); gbs > 0 {
		m.schedule.SetStepsPerEpoch(n / gbs)
	}
	ctxlog.FromContext(ctx).Debug("Modeler prepared.", "modeler", m.name, "num_samples", n)
	return nil
}

// Hyper returns the hyperparameters sent with a step.
func (m *modeler) Hyper(step int) map[string]any {
	h := maps.Clone(m.hyper)
	if m.cfg.Mode == config.ModeTrain || m.cfg.Mode == config.ModeTune {
		h["learning_rate"] = m.schedule.At(step)
	}
	return h
}

// Step runs one shard through the network.
func (m *modeler) Step(ctx context.Context, shard []component.Sample, deviceID int, st *component.RunState) (engine.Outputs, error) {
	return m.net.Forward(ctx, engine.Request{
		Mode:     m.cfg.Mode,
		DeviceID: deviceID,
		Step:     st.Step,
		Inputs:   component.Inputs(shard),
		Fetches:  m.fetches[m.cfg.Mode],
		Hyper:    m.Hyper(st.Step),
	})
}

// Export asks the engine to build the serving graph and returns its
// signature.
func (m *modeler) Export(ctx context.Context) (component.ExportSpec, error) {
	_, err := m.net.Forward(ctx, engine.Request{
		Mode:    config.ModeExport,
		Inputs:  map[string][]string{},
		Fetches: m.export.Outputs,
		Hyper:   m.Hyper(0),
	})
	if err != nil {
		return component.ExportSpec{}, fmt.Errorf("modeler %q export: %w", m.name, err)
	}
	spec := m.export
	spec.Network = m.net.Name()
	return spec, nil
}
