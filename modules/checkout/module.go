// Package checkout implements the `checkout` step type: it materializes
// the source tree under test into the job's ephemeral workspace, the local
// stand-in for a CI runner's fetch-source step.
package checkout

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vk/cigrid/internal/ctxlog"
	"github.com/vk/cigrid/internal/fsutil"
	"github.com/vk/cigrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the checkout step.
type Input struct {
	// Path places the source under a workspace-relative subdirectory
	// instead of the workspace root.
	Path string `cig:"path,optional"`
}

// OnRunCheckout is the handler for the 'checkout' step type.
func OnRunCheckout(ctx context.Context, sc *registry.StepContext, input any) error {
	in := input.(*Input)
	logger := ctxlog.FromContext(ctx)

	if sc.SourceDir == "" {
		return fmt.Errorf("no source directory configured for checkout")
	}

	dst := sc.Workspace
	if in.Path != "" {
		if filepath.IsAbs(in.Path) {
			return fmt.Errorf("path must be workspace-relative, got %q", in.Path)
		}
		dst = filepath.Join(sc.Workspace, in.Path)
	}

	logger.Debug("Materializing source tree.", "from", sc.SourceDir, "to", dst)
	if err := fsutil.CopyTree(sc.SourceDir, dst, ".git"); err != nil {
		return fmt.Errorf("copying source tree: %w", err)
	}
	return nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("checkout", &registry.RegisteredStep{
		NewInput: func() any { return new(Input) },
		Fn:       OnRunCheckout,
	})
}
