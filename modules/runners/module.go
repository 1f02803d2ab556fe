// Package runners provides the built-in run loops.
package runners

import (
	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/registry"
)

const ParameterServerName = "parameter_server_runner"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the runner factories.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner(ParameterServerName, func(cfg *config.Config, in component.Inputter, mod component.Modeler) (component.Runner, error) {
		return NewParameterServer(cfg, in, mod), nil
	})
}
