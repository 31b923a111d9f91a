package executor

import "time"

// Status is the terminal state of a run, job or step.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
)

// Result is the outcome of one workflow run.
type Result struct {
	RunID    string
	Workflow string
	Jobs     []*JobResult
	Started  time.Time
	Finished time.Time
}

// Failed reports whether any job failed. Cancelled jobs count as failed:
// they did not produce a passing verdict.
func (r *Result) Failed() bool {
	for _, j := range r.Jobs {
		if j.Status == StatusFailed || j.Status == StatusCancelled {
			return true
		}
	}
	return false
}

// Status renders the overall run status.
func (r *Result) Status() Status {
	if r.Failed() {
		return StatusFailed
	}
	return StatusSuccess
}

// JobResult is the outcome of one matrix combination.
type JobResult struct {
	// ID is the combination display name, e.g. "test (ubuntu-latest, 3.10)".
	ID       string
	Status   Status
	Steps    []*StepResult
	Started  time.Time
	Finished time.Time
	Err      error
}

// StepResult is the outcome of one step within a job.
type StepResult struct {
	Name string
	Type string
	// Informational marks a continue_on_error step whose failure did not
	// fail the job.
	Informational bool
	Status        Status
	Err           error
}
