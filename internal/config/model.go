package config

import (
	"github.com/hashicorp/hcl/v2"
)

// Workflow is the unified representation of a single `workflow` block:
// when it triggers and what it runs.
type Workflow struct {
	Name string
	On   Triggers
	// Env is the workflow-level environment expression. It must evaluate
	// to a map of strings. Nil when the workflow declares no env.
	Env  hcl.Expression
	Jobs []*Job

	// Source is the path of the file the workflow was loaded from.
	Source string
}

// Triggers describes the trigger policy of a workflow. A nil filter means
// the corresponding event type never triggers the workflow.
type Triggers struct {
	Push        *BranchFilter
	PullRequest *BranchFilter
	// Schedules holds cron expressions in standard five-field form.
	Schedules []string
	// Dispatch reports whether the workflow accepts manual invocation.
	Dispatch bool
}

// BranchFilter admits branches by exact name or glob pattern. An empty
// Branches list admits every branch.
type BranchFilter struct {
	Branches []string
}

// Job is one named job within a workflow. Its matrix, if any, expands the
// job into independent per-combination executions.
type Job struct {
	Name string
	// FailFast controls whether a failing matrix combination cancels its
	// siblings. Nil means the default, which is true.
	FailFast *bool
	Matrix   []*Dimension
	Env      hcl.Expression
	Steps    []*Step
}

// Dimension is one axis of a job's execution matrix.
type Dimension struct {
	Name   string
	Values []string
}

// Step is the format-agnostic representation of a `step` block. Argument
// values are held as unevaluated expressions so that matrix values,
// secrets and step-status functions resolve at execution time, not at
// load time.
type Step struct {
	// Type names the registered step handler ("run", "checkout", ...).
	Type string
	Name string

	// If guards execution of the step. Nil means the implicit success()
	// condition: run only while the job has neither failed nor been
	// cancelled.
	If hcl.Expression

	// ContinueOnError marks the step informational: its failure is
	// recorded but does not fail the job.
	ContinueOnError bool

	// Env is the step-scoped environment expression, evaluated with
	// secrets in scope. Secrets reach a process only through this.
	Env hcl.Expression

	Arguments map[string]hcl.Expression
}

// FailFastEnabled resolves the job's fail-fast policy with its default.
func (j *Job) FailFastEnabled() bool {
	if j.FailFast == nil {
		return true
	}
	return *j.FailFast
}
