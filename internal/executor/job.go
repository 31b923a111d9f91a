package executor

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vk/cigrid/internal/config"
	"github.com/vk/cigrid/internal/ctxlog"
	"github.com/vk/cigrid/internal/events"
	"github.com/vk/cigrid/internal/hcldef"
	"github.com/vk/cigrid/internal/matrix"
	"github.com/vk/cigrid/internal/registry"
	"github.com/vk/cigrid/internal/trigger"
)

// runJob executes a single matrix combination: it provisions an ephemeral
// workspace, then runs the job's steps strictly in declared order under
// the job's failure semantics.
func (e *Executor) runJob(ctx context.Context, job *config.Job, comb matrix.Combination, wfEnv map[string]string, ev trigger.Event, runID string) *JobResult {
	jobID := comb.ID()
	ctx = ctxlog.With(ctx, "job", jobID)
	logger := ctxlog.FromContext(ctx)

	res := &JobResult{ID: jobID, Status: StatusSuccess, Started: time.Now()}
	defer func() { res.Finished = time.Now() }()

	if ctx.Err() != nil {
		logger.Warn("Job cancelled before it started.")
		res.Status = StatusCancelled
		// Sinks still get a terminal event for the combination.
		e.emitJobFinished(ctx, runID, res)
		return res
	}

	e.emit(ctx, events.Event{Kind: events.JobStarted, RunID: runID, Job: jobID, Time: res.Started})
	logger.Info("▶️ Starting job.")

	workspace, err := os.MkdirTemp("", "cigrid-job-*")
	if err != nil {
		res.Status = StatusFailed
		res.Err = fmt.Errorf("provisioning workspace: %w", err)
		logger.Error("Workspace provisioning failed.", "error", err)
		e.emitJobFinished(ctx, runID, res)
		return res
	}
	defer os.RemoveAll(workspace)
	logger.Debug("Workspace provisioned.", "workspace", workspace)

	// Job env may reference the matrix, so it is evaluated per combination.
	jobEnv, err := hcldef.EvalStringMap(job.Env, evalContext(comb, wfEnv, nil, ev, jobState{}))
	if err != nil {
		res.Status = StatusFailed
		res.Err = fmt.Errorf("evaluating job env: %w", err)
		logger.Error("Job env evaluation failed.", "error", err)
		e.emitJobFinished(ctx, runID, res)
		return res
	}
	baseEnv := mergeEnv(processEnv(), wfEnv, jobEnv)
	baseEnv["CIGRID_RUN_ID"] = runID
	baseEnv["CIGRID_WORKSPACE"] = workspace

	var state jobState
	for _, step := range job.Steps {
		if ctx.Err() != nil {
			state.cancelled = true
		}

		sr := e.runStep(ctx, step, comb, baseEnv, ev, state, workspace, runID, jobID)
		res.Steps = append(res.Steps, sr)

		if sr.Status == StatusFailed && !sr.Informational {
			state.failed = true
			res.Err = sr.Err
		}
	}

	switch {
	case state.failed:
		res.Status = StatusFailed
	case state.cancelled:
		res.Status = StatusCancelled
	default:
		res.Status = StatusSuccess
	}

	if res.Status == StatusSuccess {
		logger.Info("✅ Job finished.", "status", res.Status)
	} else {
		logger.Error("❌ Job finished.", "status", res.Status, "error", res.Err)
	}
	e.emitJobFinished(ctx, runID, res)
	return res
}

// runStep evaluates one step's condition and, when it holds, decodes the
// arguments and dispatches the registered handler.
func (e *Executor) runStep(ctx context.Context, step *config.Step, comb matrix.Combination, baseEnv map[string]string, ev trigger.Event, state jobState, workspace, runID, jobID string) *StepResult {
	ctx = ctxlog.With(ctx, "step", step.Name)
	logger := ctxlog.FromContext(ctx)

	sr := &StepResult{Name: step.Name, Type: step.Type, Informational: step.ContinueOnError}

	// Secrets enter the evaluation scope here and nowhere else: only the
	// env and arguments of the step that references them ever see them.
	evalCtx := evalContext(comb, baseEnv, e.opts.Secrets, ev, state)

	run := !state.failed && !state.cancelled
	if step.If != nil {
		var err error
		run, err = hcldef.EvalBool(step.If, evalCtx)
		if err != nil {
			sr.Status = StatusFailed
			sr.Err = fmt.Errorf("evaluating step condition: %w", err)
			logger.Error("Step condition evaluation failed.", "error", err)
			return sr
		}
	}
	if !run {
		sr.Status = StatusSkipped
		logger.Info("⏭️ Step skipped.")
		e.emit(ctx, events.Event{Kind: events.StepSkipped, RunID: runID, Job: jobID, Step: step.Name, Time: time.Now()})
		return sr
	}

	stepEnv, err := hcldef.EvalStringMap(step.Env, evalCtx)
	if err != nil {
		sr.Status = StatusFailed
		sr.Err = fmt.Errorf("evaluating step env: %w", err)
		logger.Error("Step env evaluation failed.", "error", err)
		return sr
	}

	handler, ok := e.reg.Lookup(step.Type)
	if !ok {
		// ValidateWorkflows runs at startup, so this is a programmer error.
		sr.Status = StatusFailed
		sr.Err = fmt.Errorf("unknown step type %q", step.Type)
		return sr
	}

	input := handler.NewInput()
	if input != nil {
		if err := hcldef.DecodeArguments(input, step.Arguments, evalCtx); err != nil {
			sr.Status = StatusFailed
			sr.Err = fmt.Errorf("decoding step arguments: %w", err)
			logger.Error("Step argument decoding failed.", "error", err)
			return sr
		}
	}

	sc := &registry.StepContext{
		Workspace: workspace,
		SourceDir: e.opts.SourceDir,
		Env:       mergeEnv(baseEnv, stepEnv),
		Workers:   e.stepWorkers(),
	}

	logger.Info("▶️ Starting step.", "type", step.Type)
	e.emit(ctx, events.Event{Kind: events.StepStarted, RunID: runID, Job: jobID, Step: step.Name, Time: time.Now()})
	started := time.Now()

	runErr := handler.Fn(ctx, sc, input)

	if runErr != nil {
		sr.Status = StatusFailed
		sr.Err = runErr
		if step.ContinueOnError {
			logger.Warn("Step failed, continuing (informational step).", "error", runErr, "duration", time.Since(started))
		} else {
			logger.Error("Step failed.", "error", runErr, "duration", time.Since(started))
		}
	} else {
		sr.Status = StatusSuccess
		logger.Info("✅ Finished step.", "duration", time.Since(started))
	}

	e.emit(ctx, events.Event{
		Kind: events.StepFinished, RunID: runID, Job: jobID, Step: step.Name,
		Status: string(sr.Status), Error: errString(sr.Err), Time: time.Now(),
	})
	return sr
}

func (e *Executor) emitJobFinished(ctx context.Context, runID string, res *JobResult) {
	e.emit(ctx, events.Event{
		Kind: events.JobFinished, RunID: runID, Job: res.ID,
		Status: string(res.Status), Error: errString(res.Err), Time: time.Now(),
	})
}

// processEnv snapshots the runner's own environment as a map.
func processEnv() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// mergeEnv overlays the given maps left to right; later maps win.
func mergeEnv(maps ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
