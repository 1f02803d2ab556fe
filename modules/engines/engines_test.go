package engines

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/engine"
	"github.com/vk/trainkit/internal/registry"
)

func TestDryRun_AnswersEveryFetch(t *testing.T) {
	e := NewDryRun()
	req := engine.Request{
		Network: "fcn",
		Mode:    config.ModeTrain,
		Step:    3,
		Inputs:  map[string][]string{"image": {"a", "b"}},
		Fetches: []string{"loss", "accuracy", "learning_rate", "logits"},
		Hyper:   map[string]any{"learning_rate": 0.5},
	}

	out, err := e.Run(context.Background(), req)

	require.NoError(t, err)
	require.NoError(t, engine.Check(req, out))
	assert.InDelta(t, 2.0/3.0, out["loss"], 1e-9)
	assert.Equal(t, 0.5, out["learning_rate"])
	assert.Equal(t, []string{"logits:0:0", "logits:0:1"}, out["logits"])
	assert.EqualValues(t, 1, e.Calls())
}

func TestDryRun_LossDecaysWithStep(t *testing.T) {
	e := NewDryRun()
	loss := func(step int) float64 {
		out, err := e.Run(context.Background(), engine.Request{Step: step, Fetches: []string{"loss"}})
		require.NoError(t, err)
		v, ok := out.Scalar("loss")
		require.True(t, ok)
		return v
	}
	assert.Greater(t, loss(0), loss(10))
}

func TestDryRun_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDryRun().Run(ctx, engine.Request{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDryRun_SaveCheckpoint(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ckpt")

	path, err := NewDryRun().SaveCheckpoint(context.Background(), dir, 7)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "model.ckpt-7"), path)
	_, err = os.Stat(path)
	require.NoError(t, err)
}

type fakePredictor struct {
	got   any
	preds []any
	err   error
}

func (f *fakePredictor) Predict(_ context.Context, instances any) ([]any, error) {
	f.got = instances
	return f.preds, f.err
}

func TestRest_RejectsTrainingModes(t *testing.T) {
	e := NewRest(&fakePredictor{})

	for _, m := range []config.Mode{config.ModeTrain, config.ModeEval, config.ModeExport} {
		_, err := e.Run(context.Background(), engine.Request{Mode: m})
		require.ErrorIs(t, err, engine.ErrUnsupportedMode, "mode %s", m)
	}
}

func TestRest_SingleColumnIsSentAsBareValues(t *testing.T) {
	p := &fakePredictor{preds: []any{"x", "y"}}
	e := NewRest(p)

	out, err := e.Run(context.Background(), engine.Request{
		Mode:    config.ModeInfer,
		Inputs:  map[string][]string{"text": {"hello", "world"}, "augment": {"p1", "p2"}},
		Fetches: []string{"output_chars"},
	})

	require.NoError(t, err)
	assert.Equal(t, []any{"hello", "world"}, p.got)
	assert.Equal(t, []any{"x", "y"}, out["output_chars"])
}

func TestRest_ObjectPredictionsAreSplitByKey(t *testing.T) {
	p := &fakePredictor{preds: []any{
		map[string]any{"classes": 1.0, "probabilities": 0.9},
		map[string]any{"classes": 2.0, "probabilities": 0.8},
	}}

	out, err := NewRest(p).Run(context.Background(), engine.Request{
		Mode:    config.ModeInfer,
		Inputs:  map[string][]string{"a": {"1", "2"}, "b": {"3", "4"}},
		Fetches: []string{"classes", "probabilities"},
	})

	require.NoError(t, err)
	assert.Equal(t, []any{
		map[string]any{"a": "1", "b": "3"},
		map[string]any{"a": "2", "b": "4"},
	}, p.got)
	assert.Equal(t, []any{1.0, 2.0}, out["classes"])
	assert.Equal(t, []any{0.9, 0.8}, out["probabilities"])
}

func TestRest_PropagatesClientError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewRest(&fakePredictor{err: boom}).Run(context.Background(), engine.Request{
		Mode:   config.ModeInfer,
		Inputs: map[string][]string{"text": {"a"}},
	})
	require.ErrorIs(t, err, boom)
}

func TestModule_RestNeedsServerURL(t *testing.T) {
	reg := registry.New().Install(&Module{})
	f, err := reg.Engine(RestName)
	require.NoError(t, err)

	_, err = f(&config.Config{})
	require.Error(t, err)

	eng, err := f(&config.Config{ServerURL: "http://localhost:8501/v1/models/x:predict"})
	require.NoError(t, err)
	assert.NotNil(t, eng)
}
