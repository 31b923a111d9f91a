// Package app wires the application together: logger, step module
// registry, workflow loading and validation, and the run lifecycle from
// trigger matching through execution to history recording.
package app
