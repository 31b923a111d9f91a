// Package env_info implements the `env_info` step type: non-fatal
// environment diagnostics logged for debugging a job. Values are withheld
// so that nothing sensitive leaks into the run log; only the variable
// names are reported.
package env_info

import (
	"context"
	"os"
	"runtime"
	"sort"

	"github.com/vk/cigrid/internal/ctxlog"
	"github.com/vk/cigrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnRunEnvInfo is the handler for the 'env_info' step type.
func OnRunEnvInfo(ctx context.Context, sc *registry.StepContext, input any) error {
	logger := ctxlog.FromContext(ctx)

	hostname, _ := os.Hostname()
	logger.Info("Runner environment.",
		"os", runtime.GOOS,
		"arch", runtime.GOARCH,
		"cpus", runtime.NumCPU(),
		"go", runtime.Version(),
		"hostname", hostname,
		"workspace", sc.Workspace,
	)

	names := make([]string, 0, len(sc.Env))
	for k := range sc.Env {
		names = append(names, k)
	}
	sort.Strings(names)
	logger.Info("Environment variables.", "count", len(names), "names", names)

	return nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("env_info", &registry.RegisteredStep{
		NewInput: func() any { return new(struct{}) },
		Fn:       OnRunEnvInfo,
	})
}
