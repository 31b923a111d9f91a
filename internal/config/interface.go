package config

import "context"

// Loader is the interface for a format-specific workflow definition
// loader. Load reads every definition file reachable from the given
// paths and translates them into the format-agnostic model.
type Loader interface {
	Load(ctx context.Context, paths ...string) ([]*Workflow, error)
}
