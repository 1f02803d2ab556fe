package registry

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/engine"
)

// Category is a kind of pluggable component.
type Category string

const (
	CategoryAugmenter Category = "augmenter"
	CategoryNetwork   Category = "network"
	CategoryCallback  Category = "callback"
	CategoryInputter  Category = "inputter"
	CategoryModeler   Category = "modeler"
	CategoryRunner    Category = "runner"
	CategoryEngine    Category = "engine"
)

// Categories lists every category in pipeline construction order.
var Categories = []Category{
	CategoryAugmenter,
	CategoryNetwork,
	CategoryCallback,
	CategoryInputter,
	CategoryModeler,
	CategoryRunner,
	CategoryEngine,
}

// Factory signatures. Each receives the job configuration plus the
// components it depends on; none receives the registry or the builder.
type (
	AugmenterFactory func(cfg *config.Config) (component.Augmenter, error)
	NetworkFactory   func(cfg *config.Config, eng engine.Engine) (component.Network, error)
	CallbackFactory  func(cfg *config.Config) (component.Callback, error)
	InputterFactory  func(cfg *config.Config, aug component.Augmenter) (component.Inputter, error)
	ModelerFactory   func(cfg *config.Config, net component.Network, cbs []component.Callback) (component.Modeler, error)
	RunnerFactory    func(cfg *config.Config, in component.Inputter, m component.Modeler) (component.Runner, error)
	EngineFactory    func(cfg *config.Config) (engine.Engine, error)
)

// Module is the interface that all component modules must implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the factories of a single application instance.
type Registry struct {
	augmenters map[string]AugmenterFactory
	networks   map[string]NetworkFactory
	callbacks  map[string]CallbackFactory
	inputters  map[string]InputterFactory
	modelers   map[string]ModelerFactory
	runners    map[string]RunnerFactory
	engines    map[string]EngineFactory
	sealed     bool
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		augmenters: make(map[string]AugmenterFactory),
		networks:   make(map[string]NetworkFactory),
		callbacks:  make(map[string]CallbackFactory),
		inputters:  make(map[string]InputterFactory),
		modelers:   make(map[string]ModelerFactory),
		runners:    make(map[string]RunnerFactory),
		engines:    make(map[string]EngineFactory),
	}
}

// Install registers every module and seals the registry.
func (r *Registry) Install(modules ...Module) *Registry {
	for _, m := range modules {
		m.Register(r)
	}
	r.Seal()
	return r
}

// Seal makes the registry read-only. Registering afterwards panics.
func (r *Registry) Seal() {
	r.sealed = true
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	return r.sealed
}

func register[F any](r *Registry, m map[string]F, cat Category, name string, f F) {
	if r.sealed {
		panic(fmt.Sprintf("%s '%s' registered after the registry was sealed", cat, name))
	}
	if name == "" {
		panic(fmt.Sprintf("%s registered with an empty name", cat))
	}
	if _, exists := m[name]; exists {
		panic(fmt.Sprintf("%s with name '%s' already registered", cat, name))
	}
	slog.Debug("Registering component.", "category", cat, "name", name)
	m[name] = f
}

func resolve[F any](m map[string]F, cat Category, name string) (F, error) {
	f, ok := m[name]
	if !ok {
		var zero F
		return zero, &UnknownComponentError{Category: cat, Name: name, Known: slices.Sorted(maps.Keys(m))}
	}
	return f, nil
}

func (r *Registry) RegisterAugmenter(name string, f AugmenterFactory) {
	register(r, r.augmenters, CategoryAugmenter, name, f)
}

func (r *Registry) RegisterNetwork(name string, f NetworkFactory) {
	register(r, r.networks, CategoryNetwork, name, f)
}

func (r *Registry) RegisterCallback(name string, f CallbackFactory) {
	register(r, r.callbacks, CategoryCallback, name, f)
}

func (r *Registry) RegisterInputter(name string, f InputterFactory) {
	register(r, r.inputters, CategoryInputter, name, f)
}

func (r *Registry) RegisterModeler(name string, f ModelerFactory) {
	register(r, r.modelers, CategoryModeler, name, f)
}

func (r *Registry) RegisterRunner(name string, f RunnerFactory) {
	register(r, r.runners, CategoryRunner, name, f)
}

func (r *Registry) RegisterEngine(name string, f EngineFactory) {
	register(r, r.engines, CategoryEngine, name, f)
}

func (r *Registry) Augmenter(name string) (AugmenterFactory, error) {
	return resolve(r.augmenters, CategoryAugmenter, name)
}

func (r *Registry) Network(name string) (NetworkFactory, error) {
	return resolve(r.networks, CategoryNetwork, name)
}

func (r *Registry) Callback(name string) (CallbackFactory, error) {
	return resolve(r.callbacks, CategoryCallback, name)
}

func (r *Registry) Inputter(name string) (InputterFactory, error) {
	return resolve(r.inputters, CategoryInputter, name)
}

func (r *Registry) Modeler(name string) (ModelerFactory, error) {
	return resolve(r.modelers, CategoryModeler, name)
}

func (r *Registry) Runner(name string) (RunnerFactory, error) {
	return resolve(r.runners, CategoryRunner, name)
}

func (r *Registry) Engine(name string) (EngineFactory, error) {
	return resolve(r.engines, CategoryEngine, name)
}

// Has reports whether name is registered under cat.
func (r *Registry) Has(cat Category, name string) bool {
	return slices.Contains(r.Names(cat), name)
}

// Names returns the sorted names registered under cat.
func (r *Registry) Names(cat Category) []string {
	switch cat {
	case CategoryAugmenter:
		return slices.Sorted(maps.Keys(r.augmenters))
	case CategoryNetwork:
		return slices.Sorted(maps.Keys(r.networks))
	case CategoryCallback:
		return slices.Sorted(maps.Keys(r.callbacks))
	case CategoryInputter:
		return slices.Sorted(maps.Keys(r.inputters))
	case CategoryModeler:
		return slices.Sorted(maps.Keys(r.modelers))
	case CategoryRunner:
		return slices.Sorted(maps.Keys(r.runners))
	case CategoryEngine:
		return slices.Sorted(maps.Keys(r.engines))
	default:
		return nil
	}
}
