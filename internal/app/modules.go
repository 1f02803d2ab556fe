package app

import (
	"github.com/vk/trainkit/internal/registry"
	"github.com/vk/trainkit/modules/augmenters"
	"github.com/vk/trainkit/modules/callbacks"
	"github.com/vk/trainkit/modules/engines"
	"github.com/vk/trainkit/modules/inputters"
	"github.com/vk/trainkit/modules/modelers"
	"github.com/vk/trainkit/modules/networks"
	"github.com/vk/trainkit/modules/runners"
)

// coreModules is the definitive list of all modules that are compiled into
// the trainkit binary.
var coreModules = []registry.Module{
	&engines.Module{},
	&augmenters.Module{},
	&networks.Module{},
	&callbacks.Module{},
	&inputters.Module{},
	&modelers.Module{},
	&runners.Module{},
}
