package augmenters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/registry"
)

func trainOpts() component.AugmentOptions {
	return component.AugmentOptions{
		Height:        360,
		Width:         480,
		ResizeSideMin: 400,
		ResizeSideMax: 600,
		Training:      true,
	}
}

func TestVGG_TrainingPlanIsWithinBounds(t *testing.T) {
	a := NewVGG()
	for i := range 50 {
		s := a.Augment(component.Sample{Index: i}, trainOpts())
		require.NotNil(t, s.Plan)
		assert.GreaterOrEqual(t, s.Plan.ResizeSide, 400)
		assert.LessOrEqual(t, s.Plan.ResizeSide, 600)
		assert.Equal(t, 360, s.Plan.CropHeight)
		assert.Equal(t, 480, s.Plan.CropWidth)
		assert.GreaterOrEqual(t, s.Plan.OffsetX, 0.0)
		assert.Less(t, s.Plan.OffsetX, 1.0)
	}
}

func TestVGG_PlanIsReproducible(t *testing.T) {
	a := NewVGG()
	first := a.Augment(component.Sample{Index: 42}, trainOpts())
	second := a.Augment(component.Sample{Index: 42}, trainOpts())
	assert.Equal(t, first.Plan, second.Plan)
}

func TestVGG_PlanChangesWithEpoch(t *testing.T) {
	// --- Arrange ---
	a := NewVGG()
	opts := trainOpts()

	// --- Act ---
	var plans []*component.AugmentPlan
	for epoch := range 3 {
		opts.Epoch = epoch
		plans = append(plans, a.Augment(component.Sample{Index: 7}, opts).Plan)
	}

	// --- Assert ---
	assert.NotEqual(t, plans[0], plans[1])
	assert.NotEqual(t, plans[1], plans[2])
	opts.Epoch = 1
	assert.Equal(t, plans[1], a.Augment(component.Sample{Index: 7}, opts).Plan, "an epoch replays the same plan")
}

func TestVGG_EvalIgnoresEpoch(t *testing.T) {
	opts := trainOpts()
	opts.Training = false
	first := NewVGG().Augment(component.Sample{Index: 3}, opts)
	opts.Epoch = 5
	later := NewVGG().Augment(component.Sample{Index: 3}, opts)
	assert.Equal(t, first.Plan, later.Plan)
}

func TestVGG_EvalIsCentralWithoutFlip(t *testing.T) {
	opts := trainOpts()
	opts.Training = false

	s := NewVGG().Augment(component.Sample{Index: 3}, opts)

	assert.Equal(t, &component.AugmentPlan{
		ResizeSide: 400,
		CropHeight: 360,
		CropWidth:  480,
		OffsetY:    0.5,
		OffsetX:    0.5,
	}, s.Plan)
}

func TestVGG_SpeedModeSkipsResize(t *testing.T) {
	opts := trainOpts()
	opts.SpeedMode = true

	s := NewVGG().Augment(component.Sample{Index: 1}, opts)

	assert.Zero(t, s.Plan.ResizeSide)
}

func TestFCN_CropsToOutputSize(t *testing.T) {
	s := NewFCN(368, 480).Augment(component.Sample{Index: 0}, trainOpts())
	assert.Equal(t, 368, s.Plan.CropHeight)
	assert.Equal(t, 480, s.Plan.CropWidth)

	s = NewFCN(0, 0).Augment(component.Sample{Index: 0}, trainOpts())
	assert.Equal(t, 360, s.Plan.CropHeight)
}

func TestModule_RegistersBothAugmenters(t *testing.T) {
	reg := registry.New().Install(&Module{})
	for _, name := range []string{FCNName, VGGName} {
		f, err := reg.Augmenter(name)
		require.NoError(t, err)
		a, err := f(&config.Config{OutputHeight: 368, OutputWidth: 480})
		require.NoError(t, err)
		assert.Equal(t, name, a.Name())
	}
}
