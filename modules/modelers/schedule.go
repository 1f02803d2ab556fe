package modelers

import (
	"fmt"
	"math"

	"github.com/vk/trainkit/internal/config"
)

// Schedule is a piecewise-constant learning rate. Boundaries are given in
// epochs and converted to steps once the steps per epoch are known.
type Schedule struct {
	base       float64
	boundaries []float64
	decays     []float64
	steps      []int
}

// NewSchedule parses the piecewise lists of cfg.
func NewSchedule(cfg *config.Config) (*Schedule, error) {
	boundaries, err := config.ParseFloats(cfg.PiecewiseBoundaries)
	if err != nil {
		return nil, fmt.Errorf("piecewise_boundaries: %w", err)
	}
	decays, err := config.ParseFloats(cfg.PiecewiseLearningRateDecay)
	if err != nil {
		return nil, fmt.Errorf("piecewise_learning_rate_decay: %w", err)
	}
	if len(decays) != len(boundaries)+1 {
		boundaries, decays = nil, nil
	}
	return &Schedule{base: cfg.LearningRate, boundaries: boundaries, decays: decays}, nil
}

// SetStepsPerEpoch converts the epoch boundaries into step boundaries.
func (s *Schedule) SetStepsPerEpoch(n int) {
	s.steps = make([]int, len(s.boundaries))
	for i, b := range s.boundaries {
		s.steps[i] = int(math.Floor(b * float64(n)))
	}
}

// At returns the learning rate of a step. A step equal to a boundary still
// uses the value before it.
func (s *Schedule) At(step int) float64 {
	if len(s.decays) == 0 {
		return s.base
	}
	i := 0
	for i < len(s.steps) && step > s.steps[i] {
		i++
	}
	return s.base * s.decays[i]
}
