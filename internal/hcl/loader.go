package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/ctxlog"
)

// Loader is the HCL implementation of config.Loader. A job file is a flat
// list of attributes named after CLI flags:
//
//	mode               = "train"
//	batch_size_per_gpu = 16
//	train_callbacks    = ["train_basic", "train_loss"]
type Loader struct {
	conv *Converter
}

// NewLoader creates a new HCL job file loader.
func NewLoader() *Loader {
	return &Loader{conv: NewConverter()}
}

// Load implements config.Loader.
func (l *Loader) Load(ctx context.Context, path string) (config.Overrides, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	out := make(config.Overrides, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to evaluate '%s' in %s: %w", name, path, diags)
		}
		s, err := l.conv.ToFlagString(ctx, val)
		if err != nil {
			return nil, fmt.Errorf("invalid value for '%s' in %s: %w", name, path, err)
		}
		out[name] = s
	}

	logger.Debug("HCL loading complete.", "settings", len(out))
	return out, nil
}
