package augmenters

import (
	"math/rand/v2"

	"github.com/vk/trainkit/internal/component"
)

// seed is fixed so that repeated runs plan identical augmentations. The
// stream of a sample is keyed by epoch and index.
const seed = 0x5eed

// VGG plans the classic scale-jitter augmentation: resize the shorter side
// to a random length in [ResizeSideMin, ResizeSideMax], take a random
// Height x Width crop and flip horizontally at random. Outside training the
// shorter side is resized to ResizeSideMin and the crop is central.
type VGG struct{}

// NewVGG creates a VGG augmenter.
func NewVGG() *VGG { return &VGG{} }

func (*VGG) Name() string { return VGGName }

// Augment implements component.Augmenter.
func (*VGG) Augment(s component.Sample, opts component.AugmentOptions) component.Sample {
	s.Plan = plan(s.Index, opts.Height, opts.Width, opts)
	return s
}

// FCN plans segmentation augmentation. Image and label receive the same
// plan; the crop matches the network's output size when one is configured.
type FCN struct {
	outputHeight int
	outputWidth  int
}

// NewFCN creates an FCN augmenter. Zero output sizes fall back to the image
// size passed in AugmentOptions.
func NewFCN(outputHeight, outputWidth int) *FCN {
	return &FCN{outputHeight: outputHeight, outputWidth: outputWidth}
}

func (*FCN) Name() string { return FCNName }

// Augment implements component.Augmenter.
func (a *FCN) Augment(s component.Sample, opts component.AugmentOptions) component.Sample {
	h, w := opts.Height, opts.Width
	if a.outputHeight > 0 && a.outputWidth > 0 {
		h, w = a.outputHeight, a.outputWidth
	}
	s.Plan = plan(s.Index, h, w, opts)
	return s
}

func plan(index, cropHeight, cropWidth int, opts component.AugmentOptions) *component.AugmentPlan {
	p := &component.AugmentPlan{
		CropHeight: cropHeight,
		CropWidth:  cropWidth,
		OffsetY:    0.5,
		OffsetX:    0.5,
	}
	if !opts.SpeedMode {
		p.ResizeSide = opts.ResizeSideMin
	}
	if !opts.Training {
		return p
	}

	r := rand.New(rand.NewPCG(seed+uint64(opts.Epoch), uint64(index)))
	if !opts.SpeedMode && opts.ResizeSideMax > opts.ResizeSideMin {
		p.ResizeSide = opts.ResizeSideMin + r.IntN(opts.ResizeSideMax-opts.ResizeSideMin+1)
	}
	p.OffsetY = r.Float64()
	p.OffsetX = r.Float64()
	p.Flip = r.IntN(2) == 1
	return p
}
