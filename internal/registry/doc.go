// Package registry provides the central "glue" for the component system.
//
// The Registry maps a component category (inputter, network, modeler, ...)
// and a string name, as given on the command line, to the compiled Go
// factory that constructs it. Modules populate the registry once at startup
// through explicit Register calls; the registry is then sealed and only read
// while a job is built.
package registry
