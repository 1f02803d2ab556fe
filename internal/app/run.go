package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/trainkit/internal/builder"
	"github.com/vk/trainkit/internal/cli"
	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/ctxlog"
	"github.com/vk/trainkit/internal/downloader"
	"github.com/vk/trainkit/internal/hcl"
	"github.com/vk/trainkit/internal/job"
	"github.com/vk/trainkit/internal/tuner"
)

// JobFileName is written into the model dir after a successful training run
// and can be passed back with --config.
const JobFileName = "job.hcl"

// Run executes the configured mode.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "mode", a.config.Mode)

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(ctx, a.config.HealthcheckPort)
		defer a.closeHealthcheckServer(ctx)
	}

	if err := a.preflight(ctx, a.config); err != nil {
		return err
	}
	if err := a.acquireDatasets(ctx, a.config); err != nil {
		return err
	}

	if a.config.Mode == config.ModeTune {
		best, err := tuner.Tune(ctx, a.config, a.runJob)
		if err != nil {
			return fmt.Errorf("tuning failed: %w", err)
		}
		a.logger.Info("🏁 Best trial.",
			"trial_id", best.ID.String(),
			"learning_rate", best.LearningRate,
			"batch_size_per_gpu", best.BatchSize,
			"loss", best.Loss,
			"model_dir", best.ModelDir,
		)
		return nil
	}

	_, err := a.runJob(ctx, a.config)
	return err
}

// preflight validates cfg and resolves every component it names before any
// download or trial starts. Tune is checked as the train runs it launches.
func (a *App) preflight(ctx context.Context, cfg *config.Config) error {
	check := cfg
	if cfg.Mode == config.ModeTune {
		check = cfg.Clone()
		check.Mode = config.ModeTrain
	}
	if err := check.Validate(); err != nil {
		return err
	}
	if err := a.registry.Check(builder.Refs(check)...); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Configuration checked.", "mode", cfg.Mode, "components", len(builder.Refs(check)))
	return nil
}

// acquireDatasets makes every dataset meta file available for modes that
// read the dataset.
func (a *App) acquireDatasets(ctx context.Context, cfg *config.Config) error {
	if !cfg.Mode.NeedsDataset() {
		return nil
	}
	opts := downloader.Options{
		S3Endpoint: cfg.DatasetS3Endpoint,
		S3Secure:   true,
		Progress:   a.progressW,
	}
	for _, meta := range cfg.DatasetMeta {
		skipped, err := a.acquire(ctx, meta, cfg.DatasetURL, opts)
		if err != nil {
			return err
		}
		if skipped {
			a.logger.Info("Found dataset.", "meta", meta)
		}
	}
	return nil
}

// runJob builds a pipeline for cfg and runs it as a job.
func (a *App) runJob(ctx context.Context, cfg *config.Config) (component.Result, error) {
	logger := ctxlog.FromContext(ctx)

	p, err := builder.Build(ctx, cfg, a.registry)
	if err != nil {
		return component.Result{}, fmt.Errorf("failed to build pipeline: %w", err)
	}

	j := job.New(p)
	a.current.Store(j)
	logger.Info("🚀 Starting job.", "job_id", j.ID.String(), "mode", cfg.Mode)
	res, err := j.Run(ctx)
	if err != nil {
		return component.Result{}, err
	}

	logger.Info("🏁 Run summary.",
		"job_id", j.ID.String(),
		"mode", res.Mode,
		"samples", res.Samples,
		"steps", res.Steps,
		"duration", res.Duration,
		"metrics", res.Metrics,
	)

	if cfg.Mode == config.ModeTrain {
		path, err := writeJobFile(cfg)
		if err != nil {
			return res, err
		}
		logger.Info("Job file written.", "path", path)
	}
	return res, nil
}

func writeJobFile(cfg *config.Config) (string, error) {
	if err := os.MkdirAll(cfg.ModelDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create model dir: %w", err)
	}
	path := filepath.Join(cfg.ModelDir, JobFileName)
	if err := hcl.WriteFile(path, cli.Values(cfg)); err != nil {
		return "", err
	}
	return path, nil
}
