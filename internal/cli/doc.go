// Package cli parses and validates the command-line surface of the
// runner: the workflow path, the simulated event (-event, -branch, -at)
// and the execution options. It translates flags into the application's
// configuration and owns process-level concerns like usage text and
// exit codes.
package cli
