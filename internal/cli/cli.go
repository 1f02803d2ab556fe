package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/hcl"
	"github.com/vk/trainkit/internal/yamlconf"
)

// ArgumentErrorCode is the process exit code for invalid arguments.
const ArgumentErrorCode = 2

// ArgumentError reports unknown or malformed command-line input.
type ArgumentError struct {
	Message string
}

// Error implements the error interface for ArgumentError.
func (e *ArgumentError) Error() string {
	return e.Message
}

// Code returns the process exit code.
func (e *ArgumentError) Code() int { return ArgumentErrorCode }

func argError(format string, args ...any) error {
	return &ArgumentError{Message: fmt.Sprintf(format, args...)}
}

// Parse processes command-line arguments. It returns a normalized Config, a
// boolean indicating if the program should exit cleanly, or an
// ArgumentError.
func Parse(args []string, output io.Writer) (*config.Config, bool, error) {
	slog.Debug("CLI parser started.")
	return parse(args, output, config.DefaultNormalizer())
}

func parse(args []string, output io.Writer, norm config.Normalizer) (*config.Config, bool, error) {
	flagSet := flag.NewFlagSet("trainkit", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
trainkit - Assemble and run a training pipeline from named components.

Usage:
  trainkit [options]

Options:
`)
		flagSet.PrintDefaults()
	}

	cfg := &config.Config{}
	define(flagSet, cfg, Defaults(norm.Home))

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ArgumentError{Message: err.Error()}
	}
	if flagSet.NArg() > 0 {
		flagSet.Usage()
		return nil, false, argError("unexpected arguments: %s", strings.Join(flagSet.Args(), " "))
	}
	slog.Debug("Arguments parsed successfully.")

	if cfg.ConfigFile != "" {
		path := norm.ExpandPath(cfg.ConfigFile)
		if err := applyJobFile(flagSet, path); err != nil {
			return nil, false, err
		}
		slog.Debug("Job file applied.", "path", path)
	}

	if !slices.Contains(logLevels, cfg.LogLevel) {
		return nil, false, argError("invalid log-level %q: must be one of %s", cfg.LogLevel, strings.Join(logLevels, ", "))
	}
	if !slices.Contains(logFormats, cfg.LogFormat) {
		return nil, false, argError("invalid log-format %q: must be one of %s", cfg.LogFormat, strings.Join(logFormats, ", "))
	}
	for _, numeric := range []struct {
		name  string
		items []string
		ints  bool
	}{
		{"piecewise_boundaries", cfg.PiecewiseBoundaries, false},
		{"piecewise_learning_rate_decay", cfg.PiecewiseLearningRateDecay, false},
		{"tune_learning_rates", cfg.TuneLearningRates, false},
		{"tune_batch_sizes", cfg.TuneBatchSizes, true},
	} {
		items := config.SplitList(numeric.items...)
		var err error
		if numeric.ints {
			_, err = config.ParseInts(items)
		} else {
			_, err = config.ParseFloats(items)
		}
		if err != nil {
			return nil, false, argError("invalid value for -%s: %v", numeric.name, err)
		}
	}

	out := norm.Normalize(cfg)
	slog.Debug("CLI parser finished successfully.", "mode", out.Mode)
	return out, false, nil
}

// loaderFor picks the job file loader by extension.
func loaderFor(path string) (config.Loader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return hcl.NewLoader(), nil
	case ".yaml", ".yml":
		return yamlconf.NewLoader(), nil
	default:
		return nil, argError("unsupported job file %q: want .hcl, .yaml or .yml", path)
	}
}

// applyJobFile sets every flag named in the job file that was not given on
// the command line.
func applyJobFile(flagSet *flag.FlagSet, path string) error {
	loader, err := loaderFor(path)
	if err != nil {
		return err
	}
	overrides, err := loader.Load(context.Background(), path)
	if err != nil {
		return argError("invalid job file: %v", err)
	}

	explicit := map[string]bool{}
	flagSet.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	var unknown []string
	for name := range overrides {
		if name == "config" || flagSet.Lookup(name) == nil {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return argError("job file %s has unknown settings: %s", path, strings.Join(unknown, ", "))
	}

	for name, value := range overrides {
		if explicit[name] {
			continue
		}
		if err := flagSet.Set(name, value); err != nil {
			return argError("invalid value %q for %s in job file %s: %v", value, name, path, err)
		}
	}
	return nil
}
