package config

import "context"

// Overrides maps CLI flag names to their string form as read from a job file.
// List values are joined with commas so they normalise exactly like their
// command-line counterparts.
type Overrides map[string]string

// Loader is the interface for a format-specific job file loader.
type Loader interface {
	// Load reads the job file at path and returns its settings keyed by flag
	// name. It does not validate the keys; the caller owns the flag set.
	Load(ctx context.Context, path string) (Overrides, error)
}
