package inputters

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/ctxlog"
)

const shuffleSeed = 0x5eed

// dataset implements the mode handling shared by every inputter: infer reads
// the test samples, export has a single placeholder sample and the other
// modes enumerate the dataset meta files through load.
type dataset struct {
	name       string
	cfg        *config.Config
	aug        component.Augmenter
	inferField string
	load       func() ([]component.Sample, error)

	once    sync.Once
	samples []component.Sample
	err     error
}

func (d *dataset) Name() string { return d.name }

// Samples enumerates the samples once and caches the result.
func (d *dataset) Samples() ([]component.Sample, error) {
	d.once.Do(func() {
		switch d.cfg.Mode {
		case config.ModeInfer:
			d.samples = make([]component.Sample, 0, len(d.cfg.TestSamples))
			for i, p := range d.cfg.TestSamples {
				d.samples = append(d.samples, component.Sample{Index: i, Fields: map[string]string{d.inferField: p}})
			}
		case config.ModeExport:
			d.samples = []component.Sample{{Index: 0, Fields: map[string]string{}}}
		default:
			d.samples, d.err = d.load()
		}
	})
	return d.samples, d.err
}

// NumSamples implements component.Inputter.
func (d *dataset) NumSamples() (int, error) {
	s, err := d.Samples()
	if err != nil {
		return 0, err
	}
	return len(s), nil
}

// MaxSteps implements component.Inputter. Partial batches are dropped, so
// this is the floor of samples times epochs over the global batch size.
func (d *dataset) MaxSteps() (int, error) {
	n, err := d.NumSamples()
	if err != nil {
		return 0, err
	}
	gbs := d.cfg.GlobalBatchSize()
	if gbs <= 0 {
		return 0, nil
	}
	return n * d.cfg.Epochs / gbs, nil
}

func (d *dataset) augmentOptions() component.AugmentOptions {
	return component.AugmentOptions{
		Height:        d.cfg.ImageHeight,
		Width:         d.cfg.ImageWidth,
		ResizeSideMin: d.cfg.ResizeSideMin,
		ResizeSideMax: d.cfg.ResizeSideMax,
		Training:      d.cfg.Mode == config.ModeTrain,
		SpeedMode:     d.cfg.AugmenterSpeedMode,
	}
}

// order returns the sample order of one epoch. Training shuffles with a
// per-epoch seed; the other modes keep file order.
func (d *dataset) order(n, epoch int) []int {
	if d.cfg.Mode == config.ModeTrain {
		return rand.New(rand.NewPCG(shuffleSeed, uint64(epoch))).Perm(n)
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// Batches implements component.Inputter. The samples are repeated for the
// configured number of epochs and cut into global batches; a batch may span
// two epochs and the final partial batch is dropped.
func (d *dataset) Batches(ctx context.Context) (<-chan component.Batch, <-chan error) {
	out := make(chan component.Batch)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)
		logger := ctxlog.FromContext(ctx).With("inputter", d.name)

		samples, err := d.Samples()
		if err != nil {
			errc <- err
			return
		}
		gbs := d.cfg.GlobalBatchSize()
		if gbs <= 0 || len(samples) == 0 {
			return
		}

		augment := d.aug != nil && d.cfg.Mode != config.ModeInfer && d.cfg.Mode != config.ModeExport
		opts := d.augmentOptions()

		step, batchEpoch := 0, 0
		pending := make([]component.Sample, 0, gbs)
		for epoch := range d.cfg.Epochs {
			logger.Debug("Starting epoch.", "epoch", epoch)
			opts.Epoch = epoch
			for _, i := range d.order(len(samples), epoch) {
				s := samples[i]
				if augment {
					s = d.aug.Augment(s, opts)
				}
				if len(pending) == 0 {
					batchEpoch = epoch
				}
				pending = append(pending, s)
				if len(pending) < gbs {
					continue
				}
				select {
				case out <- component.Batch{Step: step, Epoch: batchEpoch, Samples: pending}:
				case <-ctx.Done():
					errc <- ctx.Err()
					return
				}
				step++
				pending = make([]component.Sample, 0, gbs)
			}
		}
		if len(pending) > 0 {
			logger.Debug("Dropping partial batch.", "size", len(pending))
		}
	}()

	return out, errc
}
