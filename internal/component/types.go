package component

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/engine"
)

// Sample is one input record. Fields carry the named inputs ("image",
// "label", "text", ...) as the framework expects them.
type Sample struct {
	Index  int
	Fields map[string]string
	Plan   *AugmentPlan
}

// AugmentOptions are the per-job augmentation parameters.
type AugmentOptions struct {
	Height        int
	Width         int
	ResizeSideMin int
	ResizeSideMax int
	Training      bool
	SpeedMode     bool
	// Epoch selects the random stream, so a sample is augmented differently
	// in every epoch.
	Epoch int
}

// AugmentPlan describes the image operations the framework should apply to a
// sample. Offsets are fractions of the free space after resizing.
type AugmentPlan struct {
	ResizeSide int
	CropHeight int
	CropWidth  int
	OffsetY    float64
	OffsetX    float64
	Flip       bool
}

// String encodes the plan as a single framework input.
func (p AugmentPlan) String() string {
	return fmt.Sprintf("resize=%d;crop=%dx%d;offset=%.4f,%.4f;flip=%t",
		p.ResizeSide, p.CropHeight, p.CropWidth, p.OffsetY, p.OffsetX, p.Flip)
}

// Batch is one global batch.
type Batch struct {
	Step    int
	Epoch   int
	Samples []Sample
}

// Shard splits the batch into n contiguous, equally sized device shards. The
// global batch size is always a multiple of n.
func (b Batch) Shard(n int) [][]Sample {
	if n <= 1 {
		return [][]Sample{b.Samples}
	}
	size := len(b.Samples) / n
	shards := make([][]Sample, n)
	for i := range n {
		shards[i] = b.Samples[i*size : (i+1)*size]
	}
	return shards
}

// Inputs collects the named fields of a shard column-wise, adding the
// augmentation plan under "augment" when present.
func Inputs(shard []Sample) map[string][]string {
	out := map[string][]string{}
	for _, s := range shard {
		for _, k := range slices.Sorted(maps.Keys(s.Fields)) {
			out[k] = append(out[k], s.Fields[k])
		}
		if s.Plan != nil {
			out["augment"] = append(out["augment"], s.Plan.String())
		}
	}
	return out
}

// RunState is shared by the runner and the callbacks of one run.
type RunState struct {
	Mode            config.Mode
	ModelDir        string
	Step            int
	MaxSteps        int
	GlobalBatchSize int
	StartedAt       time.Time
	StepStartedAt   time.Time

	// Batch is the batch of the current step.
	Batch Batch
	// Outputs are the device-averaged outputs of the current step.
	Outputs engine.Outputs
	// Metrics accumulate values published by callbacks; the runner copies
	// them into the Result.
	Metrics map[string]float64
	// Artifacts lists files written during the run.
	Artifacts []string

	// Checkpointer is set when the engine can persist model state.
	Checkpointer engine.Checkpointer
}

// NewRunState returns a RunState ready for BeforeRun.
func NewRunState(cfg *config.Config, maxSteps int) *RunState {
	return &RunState{
		Mode:            cfg.Mode,
		ModelDir:        cfg.ModelDir,
		MaxSteps:        maxSteps,
		GlobalBatchSize: cfg.GlobalBatchSize(),
		Metrics:         map[string]float64{},
	}
}

// Result summarises a finished run.
type Result struct {
	Mode      config.Mode
	Steps     int
	Samples   int
	Duration  time.Duration
	Metrics   map[string]float64
	Artifacts []string
}

// ExportSpec names the serving signature of an exported model. Outputs are
// in the order the exported graph returns them.
type ExportSpec struct {
	Network string   `yaml:"network"`
	Inputs  []string `yaml:"inputs"`
	Outputs []string `yaml:"outputs"`
}
