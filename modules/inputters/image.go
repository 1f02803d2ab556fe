package inputters

import (
	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/config"
)

// ImageSegmentation reads "image,label" rows. Both paths are relative to the
// meta file's directory.
type ImageSegmentation struct {
	dataset
}

// NewImageSegmentation creates an image segmentation inputter.
func NewImageSegmentation(cfg *config.Config, aug component.Augmenter) *ImageSegmentation {
	in := &ImageSegmentation{}
	in.dataset = dataset{
		name:       ImageSegmentationName,
		cfg:        cfg,
		aug:        aug,
		inferField: "image",
		load: func() ([]component.Sample, error) {
			return loadCSV(cfg.DatasetMeta, "image", "label")
		},
	}
	return in
}

// StyleTransfer reads "image" rows. Style transfer trains without labels.
type StyleTransfer struct {
	dataset
}

// NewStyleTransfer creates a style transfer inputter.
func NewStyleTransfer(cfg *config.Config, aug component.Augmenter) *StyleTransfer {
	in := &StyleTransfer{}
	in.dataset = dataset{
		name:       StyleTransferName,
		cfg:        cfg,
		aug:        aug,
		inferField: "image",
		load: func() ([]component.Sample, error) {
			return loadCSV(cfg.DatasetMeta, "image")
		},
	}
	return in
}

// loadCSV turns every row of every meta file into one sample whose fields
// are the first len(fields) columns.
func loadCSV(metas []string, fields ...string) ([]component.Sample, error) {
	var out []component.Sample
	for _, meta := range metas {
		rows, err := readMeta(meta)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			paths, err := resolveRow(meta, row, len(fields))
			if err != nil {
				return nil, err
			}
			s := component.Sample{Index: len(out), Fields: make(map[string]string, len(fields))}
			for i, f := range fields {
				s.Fields[f] = paths[i]
			}
			out = append(out, s)
		}
	}
	return out, nil
}
