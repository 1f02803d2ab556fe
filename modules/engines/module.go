// Package engines provides the built-in engine.Engine implementations.
package engines

import (
	"fmt"
	"time"

	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/engine"
	"github.com/vk/trainkit/internal/registry"
	"github.com/vk/trainkit/internal/serving"
)

const (
	DryRunName = "dryrun"
	RestName   = "rest"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the engine factories.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterEngine(DryRunName, func(*config.Config) (engine.Engine, error) {
		return NewDryRun(), nil
	})
	r.RegisterEngine(RestName, func(cfg *config.Config) (engine.Engine, error) {
		if cfg.ServerURL == "" {
			return nil, fmt.Errorf("the %s engine needs --server_url", RestName)
		}
		return NewRest(serving.NewClient(cfg.ServerURL, 30*time.Second)), nil
	})
}
