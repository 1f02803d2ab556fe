package modelers

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/engine"
	"github.com/vk/trainkit/internal/registry"
	"github.com/vk/trainkit/internal/testutil"
	"github.com/vk/trainkit/modules/networks"
)

// captureEngine records the requests it receives and answers every fetch.
type captureEngine struct {
	mu   sync.Mutex
	reqs []engine.Request
}

func (e *captureEngine) Run(_ context.Context, req engine.Request) (engine.Outputs, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reqs = append(e.reqs, req)
	out := engine.Outputs{}
	for _, f := range req.Fetches {
		out[f] = 1.0
	}
	return out, nil
}

func trainConfig() *config.Config {
	return config.Normalize(&config.Config{
		Mode:                       config.ModeTrain,
		BatchSizePerGPU:            2,
		NumGPU:                     1,
		Epochs:                     4,
		LearningRate:               0.1,
		PiecewiseBoundaries:        []string{"1,2"},
		PiecewiseLearningRateDecay: []string{"1.0,0.1,0.01"},
		Optimizer:                  "momentum",
		SeqLength:                  3,
	})
}

func newNet(t *testing.T, name string) (component.Network, *captureEngine) {
	t.Helper()
	eng := &captureEngine{}
	net, err := networks.New(name, eng)
	require.NoError(t, err)
	return net, eng
}

func TestSchedule_PiecewiseConstant(t *testing.T) {
	s, err := NewSchedule(trainConfig())
	require.NoError(t, err)
	s.SetStepsPerEpoch(10)

	tests := map[int]float64{0: 0.1, 10: 0.1, 11: 0.01, 20: 0.01, 21: 0.001, 500: 0.001}
	for step, want := range tests {
		assert.InDelta(t, want, s.At(step), 1e-12, "step %d", step)
	}
}

func TestSchedule_ConstantWithoutBoundaries(t *testing.T) {
	cfg := trainConfig()
	cfg.PiecewiseBoundaries = []string{}
	cfg.PiecewiseLearningRateDecay = []string{}

	s, err := NewSchedule(cfg)
	require.NoError(t, err)

	assert.Equal(t, 0.1, s.At(1000))
}

func TestStep_TrainFetchesAndHyper(t *testing.T) {
	net, eng := newNet(t, networks.FCNName)
	m, err := NewImageSegmentation(trainConfig(), net, nil)
	require.NoError(t, err)
	require.NoError(t, m.Prepare(context.Background(), &testutil.FakeInputter{N: 20}))

	st := &component.RunState{Step: 11}
	shard := []component.Sample{{Fields: map[string]string{"image": "a.png", "label": "a_l.png"}}}
	out, err := m.Step(context.Background(), shard, 1, st)

	require.NoError(t, err)
	assert.Contains(t, out, "loss")
	require.Len(t, eng.reqs, 1)
	req := eng.reqs[0]
	assert.Equal(t, networks.FCNName, req.Network)
	assert.Equal(t, 1, req.DeviceID)
	assert.Equal(t, []string{"loss", "grads", "accuracy", "learning_rate"}, req.Fetches)
	assert.Equal(t, map[string][]string{"image": {"a.png"}, "label": {"a_l.png"}}, req.Inputs)
	assert.InDelta(t, 0.01, req.Hyper["learning_rate"], 1e-12)
	assert.Equal(t, 20, req.Hyper["num_samples"])
}

func TestStep_EvalHasNoLearningRate(t *testing.T) {
	cfg := trainConfig()
	cfg.Mode = config.ModeEval
	net, eng := newNet(t, networks.FNSName)
	m, err := NewStyleTransfer(cfg, net, nil)
	require.NoError(t, err)

	_, err = m.Step(context.Background(), nil, 0, &component.RunState{})

	require.NoError(t, err)
	assert.Equal(t, []string{"loss"}, eng.reqs[0].Fetches)
	assert.NotContains(t, eng.reqs[0].Hyper, "learning_rate")
}

func TestExport_TextGenerationOutputTriple(t *testing.T) {
	cfg := trainConfig()
	cfg.Mode = config.ModeExport
	net, eng := newNet(t, networks.CharRNNName)
	m, err := NewTextGeneration(cfg, net, nil)
	require.NoError(t, err)

	spec, err := m.Export(context.Background())

	require.NoError(t, err)
	assert.Equal(t, component.ExportSpec{
		Network: networks.CharRNNName,
		Inputs:  []string{"input_chars", "c0", "h0", "c1", "h1"},
		Outputs: []string{"output_probabilities", "output_last_state", "output_chars"},
	}, spec)
	assert.Equal(t, config.ModeExport, eng.reqs[0].Mode)
	assert.Equal(t, GradClip, eng.reqs[0].Hyper["grad_clip"])
}

func TestExport_EngineErrorIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	net, err := networks.New(networks.FNSName, testutil.EngineFunc(func(context.Context, engine.Request) (engine.Outputs, error) {
		return nil, boom
	}))
	require.NoError(t, err)
	m, err := NewStyleTransfer(trainConfig(), net, nil)
	require.NoError(t, err)

	_, err = m.Export(context.Background())

	require.ErrorIs(t, err, boom)
}

type vocabInputter struct {
	testutil.FakeInputter
	chars []string
	err   error
}

func (v *vocabInputter) Vocabulary() ([]string, error) { return v.chars, v.err }
func (v *vocabInputter) SeqLength() int                { return 7 }

func TestTextGeneration_PrepareReadsVocabulary(t *testing.T) {
	net, eng := newNet(t, networks.CharRNNName)
	m, err := NewTextGeneration(trainConfig(), net, nil)
	require.NoError(t, err)

	require.NoError(t, m.Prepare(context.Background(), &vocabInputter{FakeInputter: testutil.FakeInputter{N: 4}, chars: []string{"a", "b"}}))
	_, err = m.Step(context.Background(), nil, 0, &component.RunState{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, m.Chars())
	assert.Equal(t, 2, eng.reqs[0].Hyper["vocab_size"])
	assert.Equal(t, 7, eng.reqs[0].Hyper["seq_length"])
}

func TestTextGeneration_PrepareNeedsVocabularyInputter(t *testing.T) {
	net, _ := newNet(t, networks.CharRNNName)
	m, err := NewTextGeneration(trainConfig(), net, nil)
	require.NoError(t, err)

	err = m.Prepare(context.Background(), &testutil.FakeInputter{N: 1})

	require.Error(t, err)
}

func TestTextGeneration_MissingCorpusToleratedInInfer(t *testing.T) {
	cfg := trainConfig()
	cfg.Mode = config.ModeInfer
	net, _ := newNet(t, networks.CharRNNName)
	m, err := NewTextGeneration(cfg, net, nil)
	require.NoError(t, err)

	err = m.Prepare(context.Background(), &vocabInputter{err: errors.New("no corpus")})

	require.NoError(t, err)
	assert.Empty(t, m.Chars())
}

func TestModule_RegistersModelers(t *testing.T) {
	reg := registry.New().Install(&Module{})
	assert.ElementsMatch(t,
		[]string{ImageSegmentationName, StyleTransferName, TextGenerationName},
		reg.Names(registry.CategoryModeler))
}
