// Package config defines the job configuration shared by every pipeline
// component, along with the format-agnostic Loader interface used to read
// job files.
//
// A Config is produced once per process from CLI input, passed through
// Normalize, and treated as read-only by every downstream component. Concrete
// Loader implementations, such as for HCL and YAML, live in separate packages.
package config
