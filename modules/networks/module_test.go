package networks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/engine"
	"github.com/vk/trainkit/internal/registry"
	"github.com/vk/trainkit/internal/testutil"
)

func TestForward_StampsNetworkName(t *testing.T) {
	var seen string
	eng := testutil.EngineFunc(func(_ context.Context, req engine.Request) (engine.Outputs, error) {
		seen = req.Network
		return engine.Outputs{"loss": 1.0}, nil
	})
	n, err := New(FCNName, eng)
	require.NoError(t, err)

	out, err := n.Forward(context.Background(), engine.Request{Fetches: []string{"loss"}})

	require.NoError(t, err)
	assert.Equal(t, FCNName, seen)
	assert.Equal(t, 1.0, out["loss"])
}

func TestForward_MissingFetch(t *testing.T) {
	eng := testutil.EngineFunc(func(context.Context, engine.Request) (engine.Outputs, error) {
		return engine.Outputs{}, nil
	})
	n, _ := New(CharRNNName, eng)

	_, err := n.Forward(context.Background(), engine.Request{Fetches: []string{"loss"}})

	var missing *engine.MissingFetchError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "loss", missing.Fetch)
	assert.Equal(t, CharRNNName, missing.Network)
}

func TestForward_WrapsEngineError(t *testing.T) {
	boom := errors.New("boom")
	eng := testutil.EngineFunc(func(context.Context, engine.Request) (engine.Outputs, error) {
		return nil, boom
	})
	n, _ := New(FNSName, eng)

	_, err := n.Forward(context.Background(), engine.Request{Step: 4})

	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `network "fns" step 4`)
}

func TestNew_RequiresEngine(t *testing.T) {
	_, err := New(FCNName, nil)
	require.Error(t, err)
}

func TestModule_RegistersEveryNetwork(t *testing.T) {
	reg := registry.New().Install(&Module{})
	assert.ElementsMatch(t, Names, reg.Names(registry.CategoryNetwork))

	f, err := reg.Network(CharRNNName)
	require.NoError(t, err)
	n, err := f(&config.Config{}, testutil.EngineFunc(nil))
	require.NoError(t, err)
	assert.Equal(t, CharRNNName, n.Name())
}
