package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/cigrid/internal/config"
)

// StepContext carries the per-step execution environment a handler runs
// against: the job's ephemeral workspace, the source tree being tested,
// and the fully merged environment for this step (workflow, job, matrix
// and step scopes, secrets included only where the step referenced them).
type StepContext struct {
	// Workspace is the job's ephemeral working directory. Handlers treat
	// it as the current directory of everything they do.
	Workspace string
	// SourceDir is the directory the checkout step materializes into the
	// workspace.
	SourceDir string
	// Env is the merged environment for the step.
	Env map[string]string
	// Workers caps internally parallel handlers; zero means the logical
	// CPU count.
	Workers int
}

// Environ renders the step environment in the os/exec format, sorted for
// deterministic process spawning.
func (sc *StepContext) Environ() []string {
	keys := make([]string, 0, len(sc.Env))
	for k := range sc.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, len(keys))
	for i, k := range keys {
		env[i] = k + "=" + sc.Env[k]
	}
	return env
}

// StepFunc is the signature of a step handler. The input value is the
// handler's decoded arguments struct, produced by its NewInput factory.
type StepFunc func(ctx context.Context, sc *StepContext, input any) error

// RegisteredStep couples a handler function with the factory for its
// arguments struct. NewInput may return a pointer to an empty struct for
// handlers without arguments.
type RegisteredStep struct {
	NewInput func() any
	Fn       StepFunc
}

// Module is the interface a step module implements to contribute its
// handlers to the registry.
type Module interface {
	Register(r *Registry)
}

// Registry maps step type labels to their registered handlers.
type Registry struct {
	steps map[string]*RegisteredStep
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{steps: make(map[string]*RegisteredStep)}
}

// RegisterStep adds a handler under the given step type label. Registering
// the same label twice is a programmer error and panics.
func (r *Registry) RegisterStep(typeName string, step *RegisteredStep) {
	if _, dup := r.steps[typeName]; dup {
		panic(fmt.Sprintf("step type %q registered twice", typeName))
	}
	r.steps[typeName] = step
}

// Lookup returns the handler registered for the step type, if any.
func (r *Registry) Lookup(typeName string) (*RegisteredStep, bool) {
	s, ok := r.steps[typeName]
	return s, ok
}

// Types returns the registered step type labels, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.steps))
	for t := range r.steps {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ValidateWorkflows checks that every step in every workflow names a
// registered handler type. A mismatch between definitions and compiled-in
// modules is a startup error, caught before any job runs.
func (r *Registry) ValidateWorkflows(workflows []*config.Workflow) error {
	for _, w := range workflows {
		for _, job := range w.Jobs {
			for _, step := range job.Steps {
				if _, ok := r.Lookup(step.Type); !ok {
					return fmt.Errorf("workflow %q job %q step %q: unknown step type %q (registered: %v)",
						w.Name, job.Name, step.Name, step.Type, r.Types())
				}
			}
		}
	}
	return nil
}
