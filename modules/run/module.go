// Package run implements the `run` step type: a single shell command
// executed in the job workspace with the step's merged environment.
package run

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vk/cigrid/internal/registry"
	"github.com/vk/cigrid/internal/shellexec"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the run step.
type Input struct {
	Command string `cig:"command"`
	// Shell overrides the interpreter; defaults to sh.
	Shell string `cig:"shell,optional"`
	// WorkingDir is resolved relative to the job workspace.
	WorkingDir string `cig:"working_dir,optional"`
}

// OnRunCommand is the handler for the 'run' step type.
func OnRunCommand(ctx context.Context, sc *registry.StepContext, input any) error {
	in := input.(*Input)

	workDir := sc.Workspace
	if in.WorkingDir != "" {
		if filepath.IsAbs(in.WorkingDir) {
			return fmt.Errorf("working_dir must be workspace-relative, got %q", in.WorkingDir)
		}
		workDir = filepath.Join(sc.Workspace, in.WorkingDir)
	}

	return shellexec.Run(ctx, in.Shell, workDir, in.Command, sc.Environ())
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("run", &registry.RegisteredStep{
		NewInput: func() any { return new(Input) },
		Fn:       OnRunCommand,
	})
}
