// Package modelers provides the built-in modelers. A modeler decides which
// outputs the engine must produce in each mode and which hyperparameters go
// with every step.
package modelers

import (
	"context"
	"fmt"

	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/ctxlog"
	"github.com/vk/trainkit/internal/registry"
)

const (
	ImageSegmentationName = "image_segmentation_modeler"
	StyleTransferName     = "style_transfer_modeler"
	TextGenerationName    = "text_generation_modeler"
)

// GradClip is the global gradient norm clip of the text generation modeler.
const GradClip = 5.0

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the modeler factories.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterModeler(ImageSegmentationName, func(cfg *config.Config, net component.Network, cbs []component.Callback) (component.Modeler, error) {
		return NewImageSegmentation(cfg, net, cbs)
	})
	r.RegisterModeler(StyleTransferName, func(cfg *config.Config, net component.Network, cbs []component.Callback) (component.Modeler, error) {
		return NewStyleTransfer(cfg, net, cbs)
	})
	r.RegisterModeler(TextGenerationName, func(cfg *config.Config, net component.Network, cbs []component.Callback) (component.Modeler, error) {
		return NewTextGeneration(cfg, net, cbs)
	})
}

// ImageSegmentation predicts one class per output pixel.
type ImageSegmentation struct {
	*modeler
}

// NewImageSegmentation creates an image segmentation modeler.
func NewImageSegmentation(cfg *config.Config, net component.Network, cbs []component.Callback) (*ImageSegmentation, error) {
	m, err := newModeler(ImageSegmentationName, cfg, net, cbs)
	if err != nil {
		return nil, err
	}
	m.fetches = map[config.Mode][]string{
		config.ModeTrain: {"loss", "grads", "accuracy", "learning_rate"},
		config.ModeEval:  {"loss", "accuracy"},
		config.ModeInfer: {"classes", "probabilities", "images"},
	}
	m.export = component.ExportSpec{
		Inputs:  []string{"input_image"},
		Outputs: []string{"output_classes", "output_probabilities"},
	}
	m.set("num_classes", cfg.NumClasses)
	m.set("class_names", cfg.ClassNames)
	m.set("output_height", cfg.OutputHeight)
	m.set("output_width", cfg.OutputWidth)
	return &ImageSegmentation{m}, nil
}

// StyleTransfer trains a feed-forward stylisation network.
type StyleTransfer struct {
	*modeler
}

// NewStyleTransfer creates a style transfer modeler.
func NewStyleTransfer(cfg *config.Config, net component.Network, cbs []component.Callback) (*StyleTransfer, error) {
	m, err := newModeler(StyleTransferName, cfg, net, cbs)
	if err != nil {
		return nil, err
	}
	m.fetches = map[config.Mode][]string{
		config.ModeTrain: {"loss", "grads", "learning_rate"},
		config.ModeEval:  {"loss"},
		config.ModeInfer: {"inputs", "outputs"},
	}
	m.export = component.ExportSpec{
		Inputs:  []string{"input_image"},
		Outputs: []string{"output_image"},
	}
	m.set("image_height", cfg.ImageHeight)
	m.set("image_width", cfg.ImageWidth)
	return &StyleTransfer{m}, nil
}

// Vocabulary is implemented by inputters that read a character table.
type Vocabulary interface {
	Vocabulary() ([]string, error)
	SeqLength() int
}

// TextGeneration trains a character-level language model.
type TextGeneration struct {
	*modeler
	chars []string
}

// NewTextGeneration creates a text generation modeler.
func NewTextGeneration(cfg *config.Config, net component.Network, cbs []component.Callback) (*TextGeneration, error) {
	m, err := newModeler(TextGenerationName, cfg, net, cbs)
	if err != nil {
		return nil, err
	}
	m.fetches = map[config.Mode][]string{
		config.ModeTrain: {"loss", "grads", "accuracy", "learning_rate"},
		config.ModeEval:  {"loss", "accuracy"},
		config.ModeInfer: {"inputs", "logits", "probabilities", "chars", "last_state"},
	}
	m.export = component.ExportSpec{
		Inputs:  []string{"input_chars", "c0", "h0", "c1", "h1"},
		Outputs: []string{"output_probabilities", "output_last_state", "output_chars"},
	}
	m.set("grad_clip", GradClip)
	m.set("seq_length", cfg.SeqLength)
	return &TextGeneration{modeler: m}, nil
}

// Chars returns the vocabulary read in Prepare.
func (m *TextGeneration) Chars() []string { return m.chars }

// Prepare additionally reads the vocabulary. Without a dataset (infer and
// export) a missing corpus only leaves the vocabulary empty.
func (m *TextGeneration) Prepare(ctx context.Context, in component.Inputter) error {
	if err := m.modeler.Prepare(ctx, in); err != nil {
		return err
	}
	v, ok := in.(Vocabulary)
	if !ok {
		return fmt.Errorf("modeler %q needs an inputter with a vocabulary, got %q", m.name, in.Name())
	}
	chars, err := v.Vocabulary()
	if err != nil {
		if m.cfg.Mode.NeedsDataset() {
			return fmt.Errorf("modeler %q: %w", m.name, err)
		}
		ctxlog.FromContext(ctx).Warn("No vocabulary available.", "modeler", m.name, "error", err)
	}
	m.chars = chars
	m.set("chars", chars)
	m.set("vocab_size", len(chars))
	m.set("seq_length", v.SeqLength())
	return nil
}
