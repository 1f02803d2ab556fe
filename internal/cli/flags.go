package cli

import (
	"flag"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/krateoplatformops/plumbing/env"
	"github.com/vk/trainkit/internal/config"
)

// Environment variables that override the defaults of ambient flags.
const (
	EnvLogLevel  = "TRAINKIT_LOG_LEVEL"
	EnvLogFormat = "TRAINKIT_LOG_FORMAT"
	EnvServerURL = "TRAINKIT_SERVER_URL"
)

// DefaultDatasetURL is the archive fetched when the dataset meta file is
// missing.
const DefaultDatasetURL = "https://s3-us-west-2.amazonaws.com/lambdalabs-files/camvid.tar.gz"

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Defaults returns the configuration used for every flag not given. home is
// the base of the default model dir.
func Defaults(home string) *config.Config {
	return &config.Config{
		Mode:      config.ModeTrain,
		Inputter:  "image_segmentation_csv_inputter",
		Modeler:   "image_segmentation_modeler",
		Runner:    "parameter_server_runner",
		Augmenter: "fcn_augmenter",
		Network:   "fcn",
		Engine:    "dryrun",

		DatasetMeta: []string{},
		DatasetURL:  DefaultDatasetURL,
		TestSamples: []string{},
		ClassNames:  []string{},

		BatchSizePerGPU:   16,
		NumGPU:            4,
		ShuffleBufferSize: 1000,
		NumClasses:        12,
		ImageHeight:       360,
		ImageWidth:        480,
		OutputHeight:      368,
		OutputWidth:       480,
		ResizeSideMin:     400,
		ResizeSideMax:     600,
		ImageDepth:        3,
		DataFormat:        "channels_first",
		SeqLength:         50,

		ModelDir:                   filepath.Join(home, "demo", "model", "image_segmentation_camvid"),
		L2WeightDecay:              0.0002,
		LearningRate:               0.1,
		Epochs:                     200,
		PiecewiseBoundaries:        []string{"100"},
		PiecewiseLearningRateDecay: []string{"1.0,0.1"},
		Optimizer:                  "momentum",

		LogEveryNIter:        2,
		SaveSummarySteps:     2,
		SaveCheckpointsSteps: 100,
		KeepCheckpointMax:    1,
		SummaryNames:         []string{"loss,accuracy,learning_rate"},

		SkipPretrainedVarList: []string{},
		TrainableVarList:      []string{},
		SkipTrainableVarList:  []string{},
		SkipL2LossVars:        []string{"BatchNorm,preact,postnorm"},

		TrainCallbacks: []string{"train_basic,train_loss,train_accuracy,train_speed,train_summary"},
		EvalCallbacks:  []string{"eval_basic,eval_loss,eval_accuracy,eval_speed,eval_summary"},
		InferCallbacks: []string{"infer_basic,infer_display_image_segmentation"},

		TuneLearningRates: []string{},
		TuneBatchSizes:    []string{},

		ServerURL: env.String(EnvServerURL, ""),

		LogLevel:  env.String(EnvLogLevel, "info"),
		LogFormat: env.String(EnvLogFormat, "json"),
	}
}

// listValue holds a comma separated list flag. The raw text is kept as a
// single item and split by config.Normalize.
type listValue struct{ p *[]string }

func (v listValue) String() string {
	if v.p == nil {
		return ""
	}
	return strings.Join(*v.p, ",")
}

func (v listValue) Set(s string) error {
	*v.p = []string{s}
	return nil
}

func (v listValue) Get() any { return config.SplitList(*v.p...) }

// choiceValue is a string flag restricted to a fixed set.
type choiceValue struct {
	p       *string
	choices []string
}

func (v choiceValue) String() string {
	if v.p == nil {
		return ""
	}
	return *v.p
}

func (v choiceValue) Set(s string) error {
	s = strings.ToLower(strings.TrimSpace(s))
	if !slices.Contains(v.choices, s) {
		return fmt.Errorf("must be one of %s", strings.Join(v.choices, ", "))
	}
	*v.p = s
	return nil
}

func (v choiceValue) Get() any { return *v.p }

type modeValue struct{ p *config.Mode }

func (v modeValue) String() string {
	if v.p == nil {
		return ""
	}
	return string(*v.p)
}

func (v modeValue) Set(s string) error {
	m, err := config.ParseMode(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*v.p = m
	return nil
}

func (v modeValue) Get() any { return string(*v.p) }

// define binds every flag to a field of c, with defaults taken from def.
// def and c may be the same value.
func define(fs *flag.FlagSet, c, def *config.Config) {
	*c = *def.Clone()

	str := func(p *string, name, usage string) { fs.StringVar(p, name, *p, usage) }
	num := func(p *int, name, usage string) { fs.IntVar(p, name, *p, usage) }
	dec := func(p *float64, name, usage string) { fs.Float64Var(p, name, *p, usage) }
	list := func(p *[]string, name, usage string) { fs.Var(listValue{p}, name, usage) }
	choice := func(p *string, choices []string, name, usage string) {
		fs.Var(choiceValue{p, choices}, name, usage+" Options: "+strings.Join(choices, ", ")+".")
	}

	fs.Var(modeValue{&c.Mode}, "mode", "Job mode. Options: train, eval, infer, tune, export.")
	str(&c.Inputter, "inputter", "Name of the inputter.")
	str(&c.Modeler, "modeler", "Name of the modeler.")
	str(&c.Runner, "runner", "Name of the runner.")
	str(&c.Augmenter, "augmenter", "Name of the augmenter. \"none\" disables augmentation.")
	str(&c.Network, "network", "Name of the network architecture.")
	str(&c.Engine, "engine", "Name of the engine that executes the network.")

	list(&c.DatasetMeta, "dataset_meta", "Comma separated paths to the dataset meta files.")
	str(&c.DatasetURL, "dataset_url", "URL for downloading the dataset (http, https or s3).")
	str(&c.DatasetS3Endpoint, "dataset_s3_endpoint", "S3 endpoint for s3:// dataset URLs.")
	list(&c.TestSamples, "test_samples", "Comma separated test samples. Must be provided for infer mode.")
	list(&c.ClassNames, "class_names", "Comma separated class names.")

	num(&c.BatchSizePerGPU, "batch_size_per_gpu", "Number of samples on each GPU.")
	num(&c.NumGPU, "num_gpu", "Number of GPUs.")
	num(&c.ShuffleBufferSize, "shuffle_buffer_size", "Buffer size for shuffling training samples.")
	num(&c.NumClasses, "num_classes", "Number of classes.")
	num(&c.ImageHeight, "image_height", "Image height.")
	num(&c.ImageWidth, "image_width", "Image width.")
	num(&c.OutputHeight, "output_height", "Output height.")
	num(&c.OutputWidth, "output_width", "Output width.")
	num(&c.ResizeSideMin, "resize_side_min", "The minimal image size in augmentation.")
	num(&c.ResizeSideMax, "resize_side_max", "The maximal image size in augmentation.")
	num(&c.ImageDepth, "image_depth", "Number of color channels.")
	str(&c.DataFormat, "data_format", "channels_first or channels_last.")
	fs.BoolVar(&c.AugmenterSpeedMode, "augmenter_speed_mode", c.AugmenterSpeedMode, "Use speed mode in augmentation.")
	num(&c.SeqLength, "seq_length", "Length of character sequences for text generation.")

	str(&c.ModelDir, "model_dir", "Directory to save the model.")
	str(&c.PretrainedDir, "pretrained_dir", "Path to a pretrained network (for transfer learning).")
	dec(&c.L2WeightDecay, "l2_weight_decay", "Weight decay for L2 regularization in training.")
	dec(&c.LearningRate, "learning_rate", "Initial learning rate in training.")
	num(&c.Epochs, "epochs", "Number of epochs.")
	list(&c.PiecewiseBoundaries, "piecewise_boundaries", "Epochs to decay the learning rate.")
	list(&c.PiecewiseLearningRateDecay, "piecewise_learning_rate_decay", "Decay ratio for the learning rate.")
	choice(&c.Optimizer, config.Optimizers, "optimizer", "Name of the optimizer.")

	num(&c.LogEveryNIter, "log_every_n_iter", "Number of steps to log.")
	num(&c.SaveSummarySteps, "save_summary_steps", "Number of steps to save a summary.")
	num(&c.SaveCheckpointsSteps, "save_checkpoints_steps", "Number of steps to save checkpoints.")
	num(&c.KeepCheckpointMax, "keep_checkpoint_max", "Maximum number of checkpoints to keep.")
	list(&c.SummaryNames, "summary_names", "Comma separated names for the summary.")

	list(&c.SkipPretrainedVarList, "skip_pretrained_var_list", "Variables to skip when restoring from a pretrained model.")
	list(&c.TrainableVarList, "trainable_var_list", "Trainable variables. Empty trains all but skip_trainable_var_list.")
	list(&c.SkipTrainableVarList, "skip_trainable_var_list", "Variables excluded from training.")
	list(&c.SkipL2LossVars, "skip_l2_loss_vars", "Variables excluded from L2 regularization.")

	list(&c.TrainCallbacks, "train_callbacks", "Callbacks in training.")
	list(&c.EvalCallbacks, "eval_callbacks", "Callbacks in evaluation.")
	list(&c.InferCallbacks, "infer_callbacks", "Callbacks in inference.")

	list(&c.TuneLearningRates, "tune_learning_rates", "Learning rates tried in tune mode.")
	list(&c.TuneBatchSizes, "tune_batch_sizes", "Batch sizes per GPU tried in tune mode.")

	str(&c.ServerURL, "server_url", "Model server endpoint for the rest engine. Env: "+EnvServerURL+".")
	str(&c.BroadcastURL, "broadcast_url", "Socket.IO endpoint for the train_broadcast callback.")

	choice(&c.LogLevel, logLevels, "log-level", "Logging level. Env: "+EnvLogLevel+".")
	choice(&c.LogFormat, logFormats, "log-format", "Log output format. Env: "+EnvLogFormat+".")
	num(&c.HealthcheckPort, "healthcheck-port", "Port for the HTTP health check server. 0 is disabled.")
	str(&c.ConfigFile, "config", "Job file (.hcl, .yaml or .yml) with defaults for any flag above.")
}

// Values returns the flag settings that reproduce cfg, keyed by flag name.
// The config flag itself is left out.
func Values(cfg *config.Config) map[string]any {
	var scratch config.Config
	fs := flag.NewFlagSet("values", flag.ContinueOnError)
	define(fs, &scratch, cfg)

	out := map[string]any{}
	fs.VisitAll(func(f *flag.Flag) {
		if f.Name == "config" {
			return
		}
		if g, ok := f.Value.(flag.Getter); ok {
			out[f.Name] = g.Get()
		}
	})
	return out
}
