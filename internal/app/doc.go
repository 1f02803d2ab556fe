// Package app contains the core application logic. It defines the main App
// struct and the mode dispatch: dataset acquisition, pipeline construction
// and a single job run, or a tuning search over several runs. It is
// decoupled from any specific entrypoint like a CLI or server.
package app
