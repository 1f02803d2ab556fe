// Package component defines the capability contracts of every pluggable
// pipeline part. The builder and the runners depend only on these
// interfaces; concrete implementations live under modules/.
package component

import (
	"context"

	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/engine"
)

// Augmenter attaches an augmentation plan to a sample.
type Augmenter interface {
	Name() string
	Augment(s Sample, opts AugmentOptions) Sample
}

// Network is a named architecture whose execution is delegated to an engine.
type Network interface {
	Name() string
	Engine() engine.Engine
	Forward(ctx context.Context, req engine.Request) (engine.Outputs, error)
}

// Callback observes a run. Hooks are invoked in the order the callbacks were
// configured; an error aborts the run.
type Callback interface {
	Name() string
	BeforeRun(ctx context.Context, st *RunState) error
	BeforeStep(ctx context.Context, st *RunState) error
	AfterStep(ctx context.Context, st *RunState) error
	AfterRun(ctx context.Context, st *RunState) error
}

// Inputter enumerates and batches the samples of a job.
type Inputter interface {
	Name() string
	NumSamples() (int, error)
	Samples() ([]Sample, error)
	// MaxSteps is the number of full global batches the job will consume.
	MaxSteps() (int, error)
	// Batches streams full global batches until the configured epochs are
	// exhausted or ctx is cancelled. The error channel yields at most one
	// value and is closed together with the batch channel.
	Batches(ctx context.Context) (<-chan Batch, <-chan error)
}

// Modeler turns batches into engine requests for the configured mode.
type Modeler interface {
	Name() string
	Network() Network
	Callbacks() []Callback
	// Prepare reads dataset-dependent facts (sample counts, vocabulary) from
	// the inputter before the first step.
	Prepare(ctx context.Context, in Inputter) error
	Step(ctx context.Context, shard []Sample, deviceID int, st *RunState) (engine.Outputs, error)
	Export(ctx context.Context) (ExportSpec, error)
}

// Runner drives a modeler over an inputter for the configured mode.
type Runner interface {
	Name() string
	Run(ctx context.Context) (Result, error)
}

// Pipeline is the set of components constructed for one job.
type Pipeline struct {
	Config    *config.Config
	Augmenter Augmenter
	Network   Network
	Callbacks []Callback
	Inputter  Inputter
	Modeler   Modeler
	Runner    Runner
	// Trace lists "category/name" in construction order.
	Trace []string
}
