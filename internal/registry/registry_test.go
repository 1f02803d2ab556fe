package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/engine"
)

func populated() *Registry {
	r := New()
	r.RegisterAugmenter("aug", func(*config.Config) (component.Augmenter, error) { return nil, nil })
	r.RegisterNetwork("net", func(*config.Config, engine.Engine) (component.Network, error) { return nil, nil })
	r.RegisterCallback("cb", func(*config.Config) (component.Callback, error) { return nil, nil })
	r.RegisterInputter("in", func(*config.Config, component.Augmenter) (component.Inputter, error) { return nil, nil })
	r.RegisterModeler("mod", func(*config.Config, component.Network, []component.Callback) (component.Modeler, error) {
		return nil, nil
	})
	r.RegisterRunner("run", func(*config.Config, component.Inputter, component.Modeler) (component.Runner, error) {
		return nil, nil
	})
	r.RegisterEngine("eng", func(*config.Config) (engine.Engine, error) { return nil, nil })
	return r
}

func TestResolve_UnknownNameFailsForEveryCategory(t *testing.T) {
	r := populated()

	for _, cat := range Categories {
		t.Run(string(cat), func(t *testing.T) {
			err := r.Check(Ref{Category: cat, Name: "never-registered"})
			require.Error(t, err)

			var unknown *UnknownComponentError
			require.True(t, errors.As(err, &unknown))
			assert.Equal(t, cat, unknown.Category)
			assert.Equal(t, "never-registered", unknown.Name)
			assert.Len(t, unknown.Known, 1)
		})
	}
}

func TestResolve_Known(t *testing.T) {
	r := populated()

	require.NoError(t, r.Check(
		Ref{CategoryAugmenter, "aug"},
		Ref{CategoryNetwork, "net"},
		Ref{CategoryCallback, "cb"},
		Ref{CategoryInputter, "in"},
		Ref{CategoryModeler, "mod"},
		Ref{CategoryRunner, "run"},
		Ref{CategoryEngine, "eng"},
	))

	f, err := r.Runner("run")
	require.NoError(t, err)
	assert.NotNil(t, f)
}

func TestResolve_NameIsScopedByCategory(t *testing.T) {
	r := populated()

	_, err := r.Inputter("net")
	var unknown *UnknownComponentError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, CategoryInputter, unknown.Category)
}

func TestCheck_ReportsAllMisses(t *testing.T) {
	r := populated()

	err := r.Check(Ref{CategoryNetwork, "x"}, Ref{CategoryRunner, "run"}, Ref{CategoryCallback, "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown network "x"`)
	assert.Contains(t, err.Error(), `unknown callback "y"`)
}

func TestRegister_DuplicatePanics(t *testing.T) {
	r := populated()

	assert.PanicsWithValue(t, "network with name 'net' already registered", func() {
		r.RegisterNetwork("net", nil)
	})
}

func TestRegister_AfterSealPanics(t *testing.T) {
	r := populated()
	r.Seal()

	assert.True(t, r.Sealed())
	assert.Panics(t, func() { r.RegisterCallback("late", nil) })
}

type moduleFunc func(*Registry)

func (f moduleFunc) Register(r *Registry) { f(r) }

func TestInstall_RegistersAndSeals(t *testing.T) {
	r := New().Install(moduleFunc(func(r *Registry) {
		r.RegisterCallback("b", nil)
		r.RegisterCallback("a", nil)
	}))

	assert.True(t, r.Sealed())
	assert.Equal(t, []string{"a", "b"}, r.Names(CategoryCallback))
	assert.True(t, r.Has(CategoryCallback, "a"))
	assert.False(t, r.Has(CategoryRunner, "a"))
}
