package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/labstack/echo/v4"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/downloader"
	"github.com/vk/trainkit/internal/job"
	"github.com/vk/trainkit/internal/registry"
)

// AcquireFunc makes a dataset meta file available, downloading it when
// missing.
type AcquireFunc func(ctx context.Context, metaPath, url string, opts downloader.Options) (bool, error)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	progressW  io.Writer
	logger     *slog.Logger
	registry   *registry.Registry
	config     *config.Config
	acquire    AcquireFunc
	current    atomic.Pointer[job.Job]
	httpServer *echo.Echo
}

// Option customises an App.
type Option func(*App)

// WithModules replaces the built-in modules.
func WithModules(modules ...registry.Module) Option {
	return func(a *App) {
		a.registry = registry.New().Install(modules...)
	}
}

// WithAcquirer replaces dataset acquisition.
func WithAcquirer(f AcquireFunc) Option {
	return func(a *App) { a.acquire = f }
}

// WithProgress sets where download progress is drawn. Nil hides it.
func WithProgress(w io.Writer) Option {
	return func(a *App) { a.progressW = w }
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and sealed
// registry.
func NewApp(outW io.Writer, cfg *config.Config, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:      outW,
		progressW: os.Stderr,
		logger:    logger,
		config:    cfg,
		acquire:   downloader.Acquire,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = registry.New().Install(coreModules...)
	}
	logger.Debug("All modules registered.",
		"inputters", a.registry.Names(registry.CategoryInputter),
		"modelers", a.registry.Names(registry.CategoryModeler),
		"engines", a.registry.Names(registry.CategoryEngine),
	)
	return a
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Job returns the most recently started job, or nil.
func (a *App) Job() *job.Job {
	return a.current.Load()
}
