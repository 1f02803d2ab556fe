package callbacks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

// SummaryRecord is one sampled step.
type SummaryRecord struct {
	Step   int                `yaml:"step"`
	Values map[string]float64 `yaml:"values"`
}

// SummaryFile is the document written to <model_dir>/<mode>_summary.yaml.
type SummaryFile struct {
	Mode    config.Mode     `yaml:"mode"`
	Names   []string        `yaml:"names"`
	Records []SummaryRecord `yaml:"records"`
}

// Summary samples the configured summary names every SaveSummarySteps steps
// and writes them as YAML when the run ends. Values are taken from the step
// outputs first and from the run metrics otherwise.
type Summary struct {
	Base
	cfg  *config.Config
	file SummaryFile
}

// NewSummary creates a summary callback.
func NewSummary(name string, cfg *config.Config) *Summary {
	return &Summary{
		Base: Base{name: name},
		cfg:  cfg,
		file: SummaryFile{Mode: cfg.Mode, Names: cfg.SummaryNames, Records: []SummaryRecord{}},
	}
}

// Path is where the summary is written.
func (s *Summary) Path() string {
	return filepath.Join(s.cfg.ModelDir, fmt.Sprintf("%s_summary.yaml", s.cfg.Mode))
}

// AfterStep implements component.Callback.
func (s *Summary) AfterStep(_ context.Context, st *component.RunState) error {
	if !every(st.Step, s.cfg.SaveSummarySteps) {
		return nil
	}
	rec := SummaryRecord{Step: st.Step + 1, Values: map[string]float64{}}
	for _, name := range s.cfg.SummaryNames {
		if v, ok := st.Outputs.Scalar(name); ok {
			rec.Values[name] = v
		} else if v, ok := st.Metrics[name]; ok {
			rec.Values[name] = v
		}
	}
	s.file.Records = append(s.file.Records, rec)
	return nil
}

// AfterRun implements component.Callback.
func (s *Summary) AfterRun(ctx context.Context, st *component.RunState) error {
	out, err := yaml.Marshal(&s.file)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	path := s.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create summary dir: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write summary '%s': %w", path, err)
	}
	st.Artifacts = append(st.Artifacts, path)
	ctxlog.FromContext(ctx).Info("Summary written.", "path", path, "records", len(s.file.Records))
	return nil
}
