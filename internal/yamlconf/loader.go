// Package yamlconf provides the YAML implementation of config.Loader. A job
// file is a single mapping from flag names to scalars or sequences of
// scalars.
package yamlconf

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

// Loader reads YAML job files.
type Loader struct{}

// NewLoader creates a new YAML job file loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load implements config.Loader. Scalars keep their literal text so numbers
// are parsed by the flag set exactly as on the command line.
func (l *Loader) Load(ctx context.Context, path string) (config.Overrides, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path", path)

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read YAML file %s: %w", path, err)
	}
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML file %s: %w", path, err)
	}

	out := make(config.Overrides, len(doc))
	for name, node := range doc {
		s, err := flagString(&node)
		if err != nil {
			return nil, fmt.Errorf("invalid value for '%s' in %s: %w", name, path, err)
		}
		out[name] = s
	}

	logger.Debug("YAML loading complete.", "settings", len(out))
	return out, nil
}

func flagString(node *yaml.Node) (string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return "", nil
		}
		return node.Value, nil
	case yaml.SequenceNode:
		items := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return "", fmt.Errorf("line %d: list items must be scalars", item.Line)
			}
			items = append(items, item.Value)
		}
		return strings.Join(items, ","), nil
	default:
		return "", fmt.Errorf("line %d: expected a scalar or a list", node.Line)
	}
}
