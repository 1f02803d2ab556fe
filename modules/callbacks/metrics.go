package callbacks

import (
	"context"
	"time"

	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/ctxlog"
)

// Metric tracks one scalar output. Training reports the latest value, the
// other modes the mean over all steps. Runs whose outputs lack the scalar
// are left alone.
type Metric struct {
	Base
	key       string
	cfg       *config.Config
	sum       float64
	count     int
	last      float64
	logEveryN int
}

// NewMetric creates a metric callback for the output named key.
func NewMetric(name, key string, cfg *config.Config) *Metric {
	return &Metric{Base: Base{name: name}, key: key, cfg: cfg, logEveryN: cfg.LogEveryNIter}
}

// AfterStep implements component.Callback.
func (m *Metric) AfterStep(ctx context.Context, st *component.RunState) error {
	v, ok := st.Outputs.Scalar(m.key)
	if !ok {
		return nil
	}
	m.sum += v
	m.count++
	m.last = v
	st.Metrics[m.key] = m.value()
	if every(st.Step, m.logEveryN) {
		ctxlog.FromContext(ctx).Info("Step metric.", "step", st.Step+1, m.key, v)
	}
	return nil
}

// AfterRun implements component.Callback.
func (m *Metric) AfterRun(ctx context.Context, st *component.RunState) error {
	if m.count == 0 {
		return nil
	}
	st.Metrics[m.key] = m.value()
	ctxlog.FromContext(ctx).Info("Final metric.", "mode", st.Mode, m.key, m.value())
	return nil
}

func (m *Metric) value() float64 {
	if m.cfg.Mode == config.ModeTrain {
		return m.last
	}
	return m.sum / float64(m.count)
}

// Speed measures throughput in samples per second.
type Speed struct {
	Base
	logEveryN int
	elapsed   time.Duration
	samples   int
}

// NewSpeed creates a speed callback.
func NewSpeed(name string, cfg *config.Config) *Speed {
	return &Speed{Base: Base{name: name}, logEveryN: cfg.LogEveryNIter}
}

// AfterStep implements component.Callback.
func (s *Speed) AfterStep(ctx context.Context, st *component.RunState) error {
	if st.StepStartedAt.IsZero() {
		return nil
	}
	s.elapsed += time.Since(st.StepStartedAt)
	s.samples += len(st.Batch.Samples)
	if s.elapsed > 0 {
		st.Metrics["samples_per_sec"] = float64(s.samples) / s.elapsed.Seconds()
	}
	if every(st.Step, s.logEveryN) {
		ctxlog.FromContext(ctx).Info("Step speed.", "step", st.Step+1, "samples_per_sec", st.Metrics["samples_per_sec"])
	}
	return nil
}
