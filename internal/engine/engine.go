// Package engine defines the boundary to the external ML framework that
// executes networks. Everything numerical happens behind Engine; the rest of
// trainkit only decides what to run and in which order.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/trainkit/internal/config"
)

// ErrUnsupportedMode is returned by engines that cannot serve a mode.
var ErrUnsupportedMode = errors.New("engine does not support this mode")

// Request is a single forward (and, in training, backward) pass.
type Request struct {
	Network  string
	Mode     config.Mode
	DeviceID int
	Step     int
	// Inputs holds the shard of the batch placed on DeviceID, keyed by input
	// name ("image", "label", "text", ...).
	Inputs map[string][]string
	// Fetches lists the outputs the caller wants back.
	Fetches []string
	// Hyper carries per-step hyperparameters such as the learning rate.
	Hyper map[string]any
}

// Outputs maps fetch names to framework values.
type Outputs map[string]any

// Scalar returns a fetched value as float64 if it is numeric.
func (o Outputs) Scalar(name string) (float64, bool) {
	switch v := o[name].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Engine executes network requests.
type Engine interface {
	Run(ctx context.Context, req Request) (Outputs, error)
}

// Checkpointer is implemented by engines that persist model state.
type Checkpointer interface {
	SaveCheckpoint(ctx context.Context, dir string, step int) (string, error)
}

// MissingFetchError reports an engine answer that lacks a requested output.
type MissingFetchError struct {
	Network string
	Fetch   string
}

func (e *MissingFetchError) Error() string {
	return fmt.Sprintf("engine returned no %q for network %q", e.Fetch, e.Network)
}

// Check verifies that every requested fetch is present in out.
func Check(req Request, out Outputs) error {
	for _, f := range req.Fetches {
		if _, ok := out[f]; !ok {
			return &MissingFetchError{Network: req.Network, Fetch: f}
		}
	}
	return nil
}
