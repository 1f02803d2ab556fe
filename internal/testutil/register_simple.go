package testutil

import "github.com/vk/trainkit/internal/registry"

// SimpleModule is a test helper for registering a handful of factories
// without writing a module type.
type SimpleModule struct {
	Augmenters map[string]registry.AugmenterFactory
	Networks   map[string]registry.NetworkFactory
	Callbacks  map[string]registry.CallbackFactory
	Inputters  map[string]registry.InputterFactory
	Modelers   map[string]registry.ModelerFactory
	Runners    map[string]registry.RunnerFactory
	Engines    map[string]registry.EngineFactory
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	for name, f := range m.Augmenters {
		r.RegisterAugmenter(name, f)
	}
	for name, f := range m.Networks {
		r.RegisterNetwork(name, f)
	}
	for name, f := range m.Callbacks {
		r.RegisterCallback(name, f)
	}
	for name, f := range m.Inputters {
		r.RegisterInputter(name, f)
	}
	for name, f := range m.Modelers {
		r.RegisterModeler(name, f)
	}
	for name, f := range m.Runners {
		r.RegisterRunner(name, f)
	}
	for name, f := range m.Engines {
		r.RegisterEngine(name, f)
	}
}
