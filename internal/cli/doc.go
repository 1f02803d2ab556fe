// Package cli parses command-line arguments and optional job files into a
// normalized config.Config, and maps invalid input to ArgumentError so the
// entrypoint can pick the exit code.
package cli
