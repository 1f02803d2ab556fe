// Package inputters provides the built-in dataset readers.
package inputters

import (
	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/registry"
)

const (
	ImageSegmentationName = "image_segmentation_csv_inputter"
	StyleTransferName     = "style_transfer_csv_inputter"
	TextGenerationName    = "text_generation_txt_inputter"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the inputter factories.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterInputter(ImageSegmentationName, func(cfg *config.Config, aug component.Augmenter) (component.Inputter, error) {
		return NewImageSegmentation(cfg, aug), nil
	})
	r.RegisterInputter(StyleTransferName, func(cfg *config.Config, aug component.Augmenter) (component.Inputter, error) {
		return NewStyleTransfer(cfg, aug), nil
	})
	r.RegisterInputter(TextGenerationName, func(cfg *config.Config, _ component.Augmenter) (component.Inputter, error) {
		return NewTextGeneration(cfg)
	})
}
