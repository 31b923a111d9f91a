package hcldef

import (
	"github.com/hashicorp/hcl/v2"
)

// fileSchema is the top-level structure of a workflow definition file.
type fileSchema struct {
	Workflows []*workflowSchema `hcl:"workflow,block"`
}

// workflowSchema represents a `workflow` block.
type workflowSchema struct {
	Name string         `hcl:"name,label"`
	On   *onSchema      `hcl:"on,block"`
	Env  hcl.Expression `hcl:"env,optional"`
	Jobs []*jobSchema   `hcl:"job,block"`
}

// onSchema represents the trigger policy of a workflow.
type onSchema struct {
	Push        *branchFilterSchema `hcl:"push,block"`
	PullRequest *branchFilterSchema `hcl:"pull_request,block"`
	Schedules   []*scheduleSchema   `hcl:"schedule,block"`
	Dispatch    *dispatchSchema     `hcl:"dispatch,block"`
}

// branchFilterSchema represents a `push` or `pull_request` block. Omitting
// the branches attribute admits every branch.
type branchFilterSchema struct {
	Branches []string `hcl:"branches,optional"`
}

// scheduleSchema represents a `schedule` block with a standard five-field
// cron expression.
type scheduleSchema struct {
	Cron string `hcl:"cron"`
}

// dispatchSchema represents a `dispatch` block; its presence alone enables
// manual invocation.
type dispatchSchema struct{}

// jobSchema represents a `job` block.
type jobSchema struct {
	Name     string         `hcl:"name,label"`
	FailFast *bool          `hcl:"fail_fast,optional"`
	Matrix   *matrixSchema  `hcl:"matrix,block"`
	Env      hcl.Expression `hcl:"env,optional"`
	Steps    []*stepSchema  `hcl:"step,block"`
}

// matrixSchema represents a `matrix` block.
type matrixSchema struct {
	Dimensions []*dimensionSchema `hcl:"dimension,block"`
}

// dimensionSchema represents one axis of an execution matrix.
type dimensionSchema struct {
	Name   string   `hcl:"name,label"`
	Values []string `hcl:"values"`
}

// stepSchema represents a `step` block. The first label selects the
// registered handler type, the second names the step instance.
type stepSchema struct {
	Type            string         `hcl:"type,label"`
	Name            string         `hcl:"name,label"`
	If              hcl.Expression `hcl:"if,optional"`
	ContinueOnError bool           `hcl:"continue_on_error,optional"`
	Env             hcl.Expression `hcl:"env,optional"`
	Arguments       *argsSchema    `hcl:"arguments,block"`
}

// argsSchema holds the raw body of an `arguments` block; the attribute
// expressions are extracted verbatim during translation.
type argsSchema struct {
	Body hcl.Body `hcl:",remain"`
}
