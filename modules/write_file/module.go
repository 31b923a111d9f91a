// Package write_file implements the `write_file` step type: it writes
// content, typically secret-derived (a license file, a token), to a
// workspace-relative path before any later step runs.
package write_file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vk/cigrid/internal/ctxlog"
	"github.com/vk/cigrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the write_file step.
type Input struct {
	Path    string `cig:"path"`
	Content string `cig:"content"`
	// Mode is an octal permission string; defaults to 0600 since the
	// content is usually sensitive.
	Mode string `cig:"mode,optional"`
}

// OnRunWriteFile is the handler for the 'write_file' step type.
func OnRunWriteFile(ctx context.Context, sc *registry.StepContext, input any) error {
	in := input.(*Input)
	logger := ctxlog.FromContext(ctx)

	if filepath.IsAbs(in.Path) {
		return fmt.Errorf("path must be workspace-relative, got %q", in.Path)
	}

	mode := os.FileMode(0o600)
	if in.Mode != "" {
		parsed, err := strconv.ParseUint(in.Mode, 8, 32)
		if err != nil {
			return fmt.Errorf("invalid mode %q: %w", in.Mode, err)
		}
		mode = os.FileMode(parsed)
	}

	target := filepath.Join(sc.Workspace, in.Path)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}
	if err := os.WriteFile(target, []byte(in.Content), mode); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	// The content is not logged: it is usually a secret.
	logger.Info("File written.", "path", in.Path, "bytes", len(in.Content), "mode", mode.String())
	return nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("write_file", &registry.RegisteredStep{
		NewInput: func() any { return new(Input) },
		Fn:       OnRunWriteFile,
	})
}
