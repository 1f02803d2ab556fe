// Package job wraps a constructed pipeline into a single run.
package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/ctxlog"
)

// ErrAlreadyRun is returned when Run is called a second time.
var ErrAlreadyRun = errors.New("job has already been run")

// State is the lifecycle position of a job.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// ExecutionError reports a failure raised by the runner.
type ExecutionError struct {
	JobID uuid.UUID
	Mode  config.Mode
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("job %s (%s) failed: %v", e.JobID, e.Mode, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Job is one execution of a pipeline.
type Job struct {
	ID       uuid.UUID
	Mode     config.Mode
	Pipeline *component.Pipeline

	mu       sync.Mutex
	state    State
	started  time.Time
	finished time.Time
	result   component.Result
}

// New creates a pending job for p.
func New(p *component.Pipeline) *Job {
	return &Job{ID: uuid.New(), Mode: p.Config.Mode, Pipeline: p, state: StatePending}
}

// State returns the current lifecycle state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Status is a point-in-time view of a job.
type Status struct {
	JobID    string             `json:"job_id"`
	Mode     config.Mode        `json:"mode"`
	State    State              `json:"state"`
	Started  *time.Time         `json:"started,omitempty"`
	Finished *time.Time         `json:"finished,omitempty"`
	Steps    int                `json:"steps"`
	Metrics  map[string]float64 `json:"metrics,omitempty"`
}

// Status returns a snapshot of the job.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := Status{JobID: j.ID.String(), Mode: j.Mode, State: j.state, Steps: j.result.Steps, Metrics: j.result.Metrics}
	if !j.started.IsZero() {
		t := j.started
		s.Started = &t
	}
	if !j.finished.IsZero() {
		t := j.finished
		s.Finished = &t
	}
	return s
}

// Run executes the pipeline's runner exactly once.
func (j *Job) Run(ctx context.Context) (component.Result, error) {
	j.mu.Lock()
	if j.state != StatePending {
		j.mu.Unlock()
		return component.Result{}, ErrAlreadyRun
	}
	j.state = StateRunning
	j.started = time.Now()
	j.mu.Unlock()

	ctx = ctxlog.With(ctx, "job_id", j.ID.String())
	logger := ctxlog.FromContext(ctx)
	logger.Info("Job started.", "mode", j.Mode, "components", j.Pipeline.Trace)

	res, err := j.Pipeline.Runner.Run(ctx)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.finished = time.Now()
	if err != nil {
		j.state = StateFailed
		logger.Error("Job failed.", "error", err)
		return component.Result{}, &ExecutionError{JobID: j.ID, Mode: j.Mode, Err: err}
	}
	j.state = StateSucceeded
	j.result = res
	logger.Info("Job finished.", "steps", res.Steps, "samples", res.Samples, "duration", res.Duration)
	return res, nil
}
