package yamlconf

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/testutil"
)

func TestLoad(t *testing.T) {
	ctx, _ := testutil.Context(t)
	dir := testutil.WriteFiles(t, t.TempDir(), map[string]string{"job.yaml": `
mode: eval
learning_rate: 0.00004
num_gpu: 2
augmenter_speed_mode: false
pretrained_dir: ~
eval_callbacks: [eval_basic, eval_loss]
class_names:
  - sky
  - road
`})

	got, err := NewLoader().Load(ctx, filepath.Join(dir, "job.yaml"))

	require.NoError(t, err)
	want := config.Overrides{
		"mode":                 "eval",
		"learning_rate":        "0.00004",
		"num_gpu":              "2",
		"augmenter_speed_mode": "false",
		"pretrained_dir":       "",
		"eval_callbacks":       "eval_basic,eval_loss",
		"class_names":          "sky,road",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("overrides mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_RejectsNestedMappings(t *testing.T) {
	ctx, _ := testutil.Context(t)
	dir := testutil.WriteFiles(t, t.TempDir(), map[string]string{"job.yaml": "mode:\n  name: train\n"})

	_, err := NewLoader().Load(ctx, filepath.Join(dir, "job.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "'mode'")
}

func TestLoad_MissingFile(t *testing.T) {
	ctx, _ := testutil.Context(t)

	_, err := NewLoader().Load(ctx, filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
}
