package hcl

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

func TestLoad_FlattensValues(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	dir := testutil.WriteFiles(t, t.TempDir(), map[string]string{"job.hcl": `
mode               = "train"
batch_size_per_gpu = 16
learning_rate      = 0.5
augmenter_speed_mode = true
train_callbacks    = ["train_basic", "train_loss"]
summary_names      = []
`})

	// --- Act ---
	got, err := NewLoader().Load(ctx, filepath.Join(dir, "job.hcl"))

	// --- Assert ---
	require.NoError(t, err)
	want := config.Overrides{
		"mode":                 "train",
		"batch_size_per_gpu":   "16",
		"learning_rate":        "0.5",
		"augmenter_speed_mode": "true",
		"train_callbacks":      "train_basic,train_loss",
		"summary_names":        "",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("overrides mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_RejectsBlocks(t *testing.T) {
	ctx, _ := testutil.Context(t)
	dir := testutil.WriteFiles(t, t.TempDir(), map[string]string{"job.hcl": `
runner "x" {
  a = 1
}
`})

	_, err := NewLoader().Load(ctx, filepath.Join(dir, "job.hcl"))

	require.Error(t, err)
}

func TestLoad_SyntaxError(t *testing.T) {
	ctx, _ := testutil.Context(t)
	dir := testutil.WriteFiles(t, t.TempDir(), map[string]string{"job.hcl": `mode = "train`})

	_, err := NewLoader().Load(ctx, filepath.Join(dir, "job.hcl"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestLoad_RejectsNestedObjects(t *testing.T) {
	ctx, _ := testutil.Context(t)
	dir := testutil.WriteFiles(t, t.TempDir(), map[string]string{"job.hcl": `mode = { a = 1 }`})

	_, err := NewLoader().Load(ctx, filepath.Join(dir, "job.hcl"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "'mode'")
}

func TestWriteFile_RoundTrips(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	path := filepath.Join(t.TempDir(), "job.hcl")
	settings := map[string]any{
		"mode":               "train",
		"batch_size_per_gpu": 8,
		"learning_rate":      0.25,
		"train_callbacks":    []string{"train_basic", "train_speed"},
		"class_names":        []string{},
		"pretrained_dir":     nil,
	}

	// --- Act ---
	require.NoError(t, WriteFile(path, settings))
	got, err := NewLoader().Load(ctx, path)

	// --- Assert ---
	require.NoError(t, err)
	want := config.Overrides{
		"mode":               "train",
		"batch_size_per_gpu": "8",
		"learning_rate":      "0.25",
		"train_callbacks":    "train_basic,train_speed",
		"class_names":        "",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestToFlagString_Null(t *testing.T) {
	ctx, _ := testutil.Context(t)

	_, err := NewConverter().ToFlagString(ctx, cty.NullVal(cty.String))

	require.Error(t, err)
}
