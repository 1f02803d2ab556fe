package config

import (
	"fmt"
	"slices"
)

// Mode selects what a job does. It is chosen once at parse time and never
// changes for the lifetime of a job.
type Mode string

const (
	ModeTrain  Mode = "train"
	ModeEval   Mode = "eval"
	ModeInfer  Mode = "infer"
	ModeTune   Mode = "tune"
	ModeExport Mode = "export"
)

// Modes lists every supported mode in help-text order.
var Modes = []Mode{ModeTrain, ModeEval, ModeInfer, ModeTune, ModeExport}

// ParseMode converts a raw string into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !slices.Contains(Modes, m) {
		return "", fmt.Errorf("unknown mode %q", s)
	}
	return m, nil
}

// NeedsDataset reports whether the mode reads samples from dataset_meta.
func (m Mode) NeedsDataset() bool {
	return m == ModeTrain || m == ModeEval || m == ModeTune
}

// Optimizers is the fixed set of optimizer names accepted by --optimizer.
var Optimizers = []string{"adadelta", "adagrad", "adam", "ftrl", "momentum", "rmsprop", "sgd"}

// Config holds every option of a job. List fields are always non-nil after
// Normalize; path fields are absolute.
type Config struct {
	Mode Mode

	// Component names, resolved through the registry.
	Inputter  string
	Modeler   string
	Runner    string
	Augmenter string
	Network   string
	Engine    string

	// Dataset.
	DatasetMeta       []string
	DatasetURL        string
	DatasetS3Endpoint string
	TestSamples       []string
	ClassNames        []string

	// Input shape and augmentation.
	BatchSizePerGPU    int
	NumGPU             int
	ShuffleBufferSize  int
	NumClasses         int
	ImageHeight        int
	ImageWidth         int
	OutputHeight       int
	OutputWidth        int
	ResizeSideMin      int
	ResizeSideMax      int
	ImageDepth         int
	DataFormat         string
	AugmenterSpeedMode bool
	SeqLength          int

	// Optimisation.
	ModelDir                   string
	PretrainedDir              string
	L2WeightDecay              float64
	LearningRate               float64
	Epochs                     int
	PiecewiseBoundaries        []string
	PiecewiseLearningRateDecay []string
	Optimizer                  string

	// Bookkeeping.
	LogEveryNIter        int
	SaveSummarySteps     int
	SaveCheckpointsSteps int
	KeepCheckpointMax    int
	SummaryNames         []string

	// Variable selection, passed through to the engine.
	SkipPretrainedVarList []string
	TrainableVarList      []string
	SkipTrainableVarList  []string
	SkipL2LossVars        []string

	// Callback names per mode, in execution order.
	TrainCallbacks []string
	EvalCallbacks  []string
	InferCallbacks []string

	// Tune grid.
	TuneLearningRates []string
	TuneBatchSizes    []string

	// Serving endpoint for the rest engine and broadcast target for the
	// train_broadcast callback.
	ServerURL    string
	BroadcastURL string

	// Ambient.
	LogLevel        string
	LogFormat       string
	HealthcheckPort int
	ConfigFile      string
}

// GlobalBatchSize is the number of samples consumed by one step across all
// devices.
func (c *Config) GlobalBatchSize() int {
	return c.BatchSizePerGPU * c.NumGPU
}

// CallbackNames returns the ordered callback names for the configured mode.
// Export and tune run without callbacks.
func (c *Config) CallbackNames() []string {
	switch c.Mode {
	case ModeTrain:
		return c.TrainCallbacks
	case ModeEval:
		return c.EvalCallbacks
	case ModeInfer:
		return c.InferCallbacks
	default:
		return []string{}
	}
}

// Clone returns a deep copy. Components that derive a new configuration,
// like the tuner, clone rather than mutate.
func (c *Config) Clone() *Config {
	out := *c
	for _, f := range out.lists() {
		*f = slices.Clone(*f)
	}
	return &out
}

// lists returns pointers to every list-valued field.
func (c *Config) lists() []*[]string {
	return []*[]string{
		&c.DatasetMeta,
		&c.TestSamples,
		&c.ClassNames,
		&c.PiecewiseBoundaries,
		&c.PiecewiseLearningRateDecay,
		&c.SummaryNames,
		&c.SkipPretrainedVarList,
		&c.TrainableVarList,
		&c.SkipTrainableVarList,
		&c.SkipL2LossVars,
		&c.TrainCallbacks,
		&c.EvalCallbacks,
		&c.InferCallbacks,
		&c.TuneLearningRates,
		&c.TuneBatchSizes,
	}
}
