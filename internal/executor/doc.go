// Package executor runs triggered workflows: it expands each job's
// execution matrix, runs every combination as an independent job in its
// own ephemeral workspace, and executes the job's steps strictly in
// declared order with the configured failure semantics.
//
// Failure semantics in one place:
//
//   - a failed step marks the job failed; later steps only run if their
//     `if` condition says so (the implicit condition is success())
//   - continue_on_error steps are informational: their failure is
//     recorded but does not fail the job
//   - fail_fast jobs cancel their sibling matrix combinations on first
//     failure; with fail_fast disabled each combination completes and
//     reports independently
//   - the run fails iff any job fails
package executor
