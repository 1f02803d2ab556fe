package callbacks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/engine"
	"github.com/vk/trainkit/internal/registry"
	"github.com/vk/trainkit/internal/testutil"
	"github.com/vk/trainkit/modules/engines"
	"gopkg.in/yaml.v3"
)

func cbConfig(t *testing.T, mode config.Mode) *config.Config {
	t.Helper()
	return config.Normalize(&config.Config{
		Mode:                 mode,
		ModelDir:             filepath.Join(t.TempDir(), "model"),
		BatchSizePerGPU:      1,
		NumGPU:               1,
		Epochs:               1,
		LogEveryNIter:        1,
		SaveSummarySteps:     2,
		SaveCheckpointsSteps: 2,
		KeepCheckpointMax:    2,
		SummaryNames:         []string{"loss,accuracy,learning_rate"},
	})
}

// drive runs a callback through steps outputs, one step per element.
func drive(t *testing.T, cb component.Callback, st *component.RunState, outputs ...engine.Outputs) {
	t.Helper()
	ctx, _ := testutil.Context(t)
	require.NoError(t, cb.BeforeRun(ctx, st))
	for i, out := range outputs {
		st.Step = i
		st.StepStartedAt = time.Now().Add(-10 * time.Millisecond)
		st.Batch = component.Batch{Step: i, Samples: make([]component.Sample, 2)}
		require.NoError(t, cb.BeforeStep(ctx, st))
		st.Outputs = out
		require.NoError(t, cb.AfterStep(ctx, st))
	}
	require.NoError(t, cb.AfterRun(ctx, st))
}

func losses(vs ...float64) []engine.Outputs {
	out := make([]engine.Outputs, len(vs))
	for i, v := range vs {
		out[i] = engine.Outputs{"loss": v, "accuracy": 1 - v}
	}
	return out
}

func TestBasic_CheckpointsAndPrunes(t *testing.T) {
	cfg := cbConfig(t, config.ModeTrain)
	st := component.NewRunState(cfg, 7)
	st.Checkpointer = engines.NewDryRun()
	cb := NewBasic("train_basic", cfg)

	drive(t, cb, st, losses(1, 1, 1, 1, 1, 1, 1)...)

	assert.Equal(t, []string{
		filepath.Join(cfg.ModelDir, "model.ckpt-6"),
		filepath.Join(cfg.ModelDir, "model.ckpt-7"),
	}, cb.Checkpoints())
	assert.Equal(t, cb.Checkpoints(), st.Artifacts)
	_, err := os.Stat(filepath.Join(cfg.ModelDir, "model.ckpt-2"))
	assert.True(t, os.IsNotExist(err), "old checkpoint must be pruned")
}

func TestBasic_NoCheckpointOutsideTraining(t *testing.T) {
	cfg := cbConfig(t, config.ModeEval)
	st := component.NewRunState(cfg, 2)
	st.Checkpointer = engines.NewDryRun()
	cb := NewBasic("eval_basic", cfg)

	drive(t, cb, st, losses(1, 1)...)

	assert.Empty(t, cb.Checkpoints())
}

type failingCheckpointer struct{}

func (failingCheckpointer) SaveCheckpoint(context.Context, string, int) (string, error) {
	return "", errors.New("disk full")
}

func TestBasic_CheckpointErrorAbortsStep(t *testing.T) {
	cfg := cbConfig(t, config.ModeTrain)
	st := component.NewRunState(cfg, 2)
	st.Checkpointer = failingCheckpointer{}
	st.Step = 1
	cb := NewBasic("train_basic", cfg)

	err := cb.AfterStep(context.Background(), st)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestMetric_TrainReportsLastEvalReportsMean(t *testing.T) {
	train := cbConfig(t, config.ModeTrain)
	st := component.NewRunState(train, 3)
	drive(t, NewMetric("train_loss", "loss", train), st, losses(0.9, 0.6, 0.3)...)
	assert.InDelta(t, 0.3, st.Metrics["loss"], 1e-12)

	eval := cbConfig(t, config.ModeEval)
	st = component.NewRunState(eval, 3)
	drive(t, NewMetric("eval_loss", "loss", eval), st, losses(0.9, 0.6, 0.3)...)
	assert.InDelta(t, 0.6, st.Metrics["loss"], 1e-12)
}

func TestMetric_MissingScalarIsIgnored(t *testing.T) {
	cfg := cbConfig(t, config.ModeTrain)
	st := component.NewRunState(cfg, 1)

	drive(t, NewMetric("train_accuracy", "accuracy", cfg), st, engine.Outputs{"loss": 1.0})

	assert.NotContains(t, st.Metrics, "accuracy")
}

func TestSpeed_PublishesThroughput(t *testing.T) {
	cfg := cbConfig(t, config.ModeTrain)
	st := component.NewRunState(cfg, 2)

	drive(t, NewSpeed("train_speed", cfg), st, losses(1, 1)...)

	assert.Greater(t, st.Metrics["samples_per_sec"], 0.0)
}

func TestSummary_WritesYAML(t *testing.T) {
	cfg := cbConfig(t, config.ModeTrain)
	st := component.NewRunState(cfg, 4)
	st.Metrics["learning_rate"] = 0.1
	cb := NewSummary("train_summary", cfg)

	drive(t, cb, st, losses(0.8, 0.6, 0.4, 0.2)...)

	raw, err := os.ReadFile(cb.Path())
	require.NoError(t, err)
	var got SummaryFile
	require.NoError(t, yaml.Unmarshal(raw, &got))
	assert.Equal(t, config.ModeTrain, got.Mode)
	require.Len(t, got.Records, 2)
	assert.Equal(t, 2, got.Records[0].Step)
	assert.InDelta(t, 0.6, got.Records[0].Values["loss"], 1e-12)
	assert.InDelta(t, 0.1, got.Records[1].Values["learning_rate"], 1e-12)
	assert.Contains(t, st.Artifacts, filepath.Join(cfg.ModelDir, "train_summary.yaml"))
}

func TestDisplay_LogsEverySample(t *testing.T) {
	ctx, logs := testutil.Context(t)
	st := component.NewRunState(cbConfig(t, config.ModeInfer), 1)
	st.Batch = component.Batch{Samples: []component.Sample{
		{Fields: map[string]string{"image": "/a.jpg"}},
		{Fields: map[string]string{"image": "/b.jpg"}},
	}}
	st.Outputs = engine.Outputs{"classes": []string{"road", "sky"}}
	d := NewDisplay("infer_display_image_segmentation", "image", "classes")

	require.NoError(t, d.AfterStep(ctx, st))

	assert.Equal(t, 2, d.Shown())
	assert.Contains(t, logs.String(), "image=/b.jpg classes=sky")
}

type recordingEmitter struct {
	events []string
	last   any
	closed bool
}

func (r *recordingEmitter) Emit(event string, data any) {
	r.events = append(r.events, event)
	r.last = data
}

func (r *recordingEmitter) Close() { r.closed = true }

func TestBroadcast_EmitsStepsAndEnd(t *testing.T) {
	cfg := cbConfig(t, config.ModeTrain)
	cfg.BroadcastURL = "http://localhost:3000/socket.io/"
	cb, err := NewBroadcast(cfg)
	require.NoError(t, err)
	em := &recordingEmitter{}
	cb.WithDialer(func(context.Context, string) (Emitter, error) { return em, nil })
	st := component.NewRunState(cfg, 2)

	drive(t, cb, st, losses(0.5, 0.25)...)

	assert.Equal(t, []string{StepEvent, StepEvent, EndEvent}, em.events)
	assert.True(t, em.closed)
	last := em.last.(StepPayload)
	assert.Equal(t, 2, last.Step)
	assert.Equal(t, 2, last.MaxSteps)
	assert.InDelta(t, 0.25, last.Values["loss"], 1e-12)
}

func TestBroadcast_DialErrorAbortsRun(t *testing.T) {
	cfg := cbConfig(t, config.ModeTrain)
	cfg.BroadcastURL = "http://localhost:3000/"
	cb, err := NewBroadcast(cfg)
	require.NoError(t, err)
	cb.WithDialer(func(context.Context, string) (Emitter, error) { return nil, errors.New("refused") })

	err = cb.BeforeRun(context.Background(), component.NewRunState(cfg, 1))

	require.Error(t, err)
}

func TestBroadcast_RequiresURL(t *testing.T) {
	_, err := NewBroadcast(cbConfig(t, config.ModeTrain))
	require.Error(t, err)
}

func TestModule_RegistersAllCallbacks(t *testing.T) {
	reg := registry.New().Install(&Module{})
	for _, name := range []string{
		"train_basic", "train_loss", "train_accuracy", "train_speed", "train_summary",
		"eval_basic", "eval_loss", "eval_accuracy", "eval_speed", "eval_summary",
		"infer_basic", "infer_display_image_segmentation", "infer_display_style_transfer",
		"infer_display_text_generation", "train_broadcast",
	} {
		assert.True(t, reg.Has(registry.CategoryCallback, name), name)
	}
}
