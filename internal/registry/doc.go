// Package registry holds the step handler registry: the mapping from the
// step type labels used in workflow definitions ("run", "checkout", ...)
// to the compiled-in Go handlers that execute them. Modules register their
// handlers at application startup; the executor looks them up by type when
// a step is dispatched.
package registry
