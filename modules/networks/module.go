// Package networks provides the built-in network architectures. A network is
// a named graph; building and executing it is the engine's job.
package networks

import (
	"context"
	"fmt"

	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/ctxlog"
	"github.com/vk/trainkit/internal/engine"
	"github.com/vk/trainkit/internal/registry"
)

const (
	// FCNName is the fully convolutional segmentation network.
	FCNName = "fcn"
	// CharRNNName is the character-level recurrent text generator.
	CharRNNName = "char_rnn"
	// FNSName is the fast neural style transfer network.
	FNSName = "fns"
)

// Names lists the registered networks.
var Names = []string{FCNName, CharRNNName, FNSName}

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers one factory per network name.
func (m *Module) Register(r *registry.Registry) {
	for _, name := range Names {
		r.RegisterNetwork(name, func(_ *config.Config, eng engine.Engine) (component.Network, error) {
			return New(name, eng)
		})
	}
}

// Network forwards requests for one named graph to an engine.
type Network struct {
	name string
	eng  engine.Engine
}

// New creates a network bound to eng.
func New(name string, eng engine.Engine) (*Network, error) {
	if eng == nil {
		return nil, fmt.Errorf("network %q needs an engine", name)
	}
	return &Network{name: name, eng: eng}, nil
}

func (n *Network) Name() string          { return n.name }
func (n *Network) Engine() engine.Engine { return n.eng }

// Forward stamps the request with the network name, runs it and checks that
// every requested fetch came back.
func (n *Network) Forward(ctx context.Context, req engine.Request) (engine.Outputs, error) {
	req.Network = n.name
	out, err := n.eng.Run(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("network %q step %d device %d: %w", n.name, req.Step, req.DeviceID, err)
	}
	if err := engine.Check(req, out); err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Network forward done.", "network", n.name, "step", req.Step, "device", req.DeviceID)
	return out, nil
}
