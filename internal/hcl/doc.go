// Package hcl provides the HCL implementation of the config.Loader interface
// and the writer for replayable job files. Values are converted through cty
// so numbers, booleans and lists in a job file become the same strings a
// user would pass as flags.
package hcl
