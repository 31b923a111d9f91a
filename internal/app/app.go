package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/cigrid/internal/config"
	"github.com/vk/cigrid/internal/ctxlog"
	"github.com/vk/cigrid/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	registry  *registry.Registry
	workflows []*config.Workflow
	config    *Config
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and registry.
// Startup misconfiguration (unreadable definitions, steps naming unknown
// handler types) is fatal and panics; the caller recovers at the process
// boundary.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW, slog.String("app", "cigrid"))
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All step modules registered.", "count", len(modules), "types", reg.Types())

	var workflows []*config.Workflow
	if appConfig.WorkflowPath != "" {
		var err error
		workflows, err = loader.Load(ctx, appConfig.WorkflowPath)
		if err != nil {
			// A failure to load definitions is a fatal startup error.
			panic(fmt.Errorf("failed to load workflow definitions: %w", err))
		}
		logger.Debug("Workflow definitions loaded.", "count", len(workflows))

		if err := reg.ValidateWorkflows(workflows); err != nil {
			// A mismatch between definitions and compiled-in modules.
			panic(err)
		}
		logger.Debug("Registry validation passed.")
	}

	return &App{
		outW:      outW,
		logger:    logger,
		registry:  reg,
		workflows: workflows,
		config:    appConfig,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Workflows returns the loaded workflow definitions. Primarily for testing.
func (a *App) Workflows() []*config.Workflow {
	return a.workflows
}
