// Package augmenters provides the built-in image augmentation planners.
//
// An augmenter never touches pixels. It attaches an AugmentPlan to each
// sample describing the resize, crop and flip the engine should apply, so
// the plan is reproducible from the sample index alone.
package augmenters

import (
	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/registry"
)

const (
	FCNName = "fcn_augmenter"
	VGGName = "vgg_augmenter"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the augmenter factories.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAugmenter(FCNName, func(cfg *config.Config) (component.Augmenter, error) {
		return NewFCN(cfg.OutputHeight, cfg.OutputWidth), nil
	})
	r.RegisterAugmenter(VGGName, func(*config.Config) (component.Augmenter, error) {
		return NewVGG(), nil
	})
}
