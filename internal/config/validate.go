package config

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ValidationError reports a configuration that parsed correctly but cannot
// run in the selected mode.
type ValidationError struct {
	Mode   Mode
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration for mode %q: %s: %s", e.Mode, e.Field, e.Reason)
}

// Validate checks the mode-specific requirements of a normalized Config. All
// problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Mode: c.Mode, Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	if _, err := ParseMode(string(c.Mode)); err != nil {
		fail("mode", "must be one of %s", joinModes())
		return errors.Join(errs...)
	}

	if c.Mode == ModeInfer && len(c.TestSamples) == 0 {
		fail("test_samples", "must be provided for infer mode")
	}
	if c.Mode.NeedsDataset() && len(c.DatasetMeta) == 0 {
		fail("dataset_meta", "must be provided for %s mode", c.Mode)
	}
	if c.BatchSizePerGPU <= 0 {
		fail("batch_size_per_gpu", "must be positive, got %d", c.BatchSizePerGPU)
	}
	if c.NumGPU <= 0 {
		fail("num_gpu", "must be positive, got %d", c.NumGPU)
	}
	if c.Epochs <= 0 && c.Mode != ModeExport {
		fail("epochs", "must be positive, got %d", c.Epochs)
	}
	if c.Optimizer != "" && !slices.Contains(Optimizers, c.Optimizer) {
		fail("optimizer", "must be one of %s", strings.Join(Optimizers, ", "))
	}

	boundaries, err := ParseFloats(c.PiecewiseBoundaries)
	if err != nil {
		fail("piecewise_boundaries", "%v", err)
	}
	decays, err := ParseFloats(c.PiecewiseLearningRateDecay)
	if err != nil {
		fail("piecewise_learning_rate_decay", "%v", err)
	}
	if c.Mode == ModeTrain && len(boundaries) > 0 && len(decays) != len(boundaries)+1 {
		fail("piecewise_learning_rate_decay", "needs %d values for %d boundaries, got %d",
			len(boundaries)+1, len(boundaries), len(decays))
	}
	if !slices.IsSorted(boundaries) {
		fail("piecewise_boundaries", "must be ascending")
	}

	if _, err := ParseFloats(c.TuneLearningRates); err != nil {
		fail("tune_learning_rates", "%v", err)
	}
	if _, err := ParseInts(c.TuneBatchSizes); err != nil {
		fail("tune_batch_sizes", "%v", err)
	}

	return errors.Join(errs...)
}

// ParseFloats converts a normalized list into numbers.
func ParseFloats(items []string) ([]float64, error) {
	out := make([]float64, 0, len(items))
	for _, s := range items {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", s)
		}
		out = append(out, f)
	}
	return out, nil
}

// ParseInts converts a normalized list into positive integers.
func ParseInts(items []string) ([]int, error) {
	out := make([]int, 0, len(items))
	for _, s := range items {
		i, err := strconv.Atoi(s)
		if err != nil || i <= 0 {
			return nil, fmt.Errorf("%q is not a positive integer", s)
		}
		out = append(out, i)
	}
	return out, nil
}

func joinModes() string {
	names := make([]string, 0, len(Modes))
	for _, m := range Modes {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}
