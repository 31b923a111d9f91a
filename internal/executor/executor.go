package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vk/cigrid/internal/config"
	"github.com/vk/cigrid/internal/ctxlog"
	"github.com/vk/cigrid/internal/events"
	"github.com/vk/cigrid/internal/hcldef"
	"github.com/vk/cigrid/internal/matrix"
	"github.com/vk/cigrid/internal/registry"
	"github.com/vk/cigrid/internal/trigger"
)

// Options configures an Executor.
type Options struct {
	// SourceDir is the source tree checkout steps materialize into job
	// workspaces.
	SourceDir string
	// Secrets is the secret store exposed through the secrets.* namespace.
	Secrets map[string]string
	// JobWorkers bounds how many matrix jobs run concurrently.
	JobWorkers int
	// StepWorkers caps internally parallel step handlers; zero means the
	// logical CPU count.
	StepWorkers int
	// Sink receives lifecycle events; nil disables emission.
	Sink events.Sink
}

// Executor orchestrates the end-to-end execution of triggered workflows.
type Executor struct {
	reg  *registry.Registry
	opts Options
}

// New creates an executor over the given step handler registry.
func New(reg *registry.Registry, opts Options) *Executor {
	if opts.JobWorkers <= 0 {
		opts.JobWorkers = 1
	}
	if opts.Secrets == nil {
		opts.Secrets = map[string]string{}
	}
	return &Executor{reg: reg, opts: opts}
}

// RunWorkflow executes every job of the workflow for the given event. Each
// matrix combination runs as an independent job, concurrently up to the
// worker bound. The returned Result is never nil on a nil error; the error
// covers orchestration faults, not job failures. The caller scopes the
// context logger to the run.
func (e *Executor) RunWorkflow(ctx context.Context, w *config.Workflow, ev trigger.Event, runID string) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	result := &Result{RunID: runID, Workflow: w.Name, Started: time.Now()}
	e.emit(ctx, events.Event{Kind: events.RunStarted, RunID: runID, Workflow: w.Name, Time: result.Started})

	// Workflow env is matrix-independent, so it is resolved once up front.
	wfEnv, err := hcldef.EvalStringMap(w.Env, evalContext(matrix.Combination{}, nil, nil, ev, jobState{}))
	if err != nil {
		return nil, fmt.Errorf("evaluating workflow env: %w", err)
	}

	type jobRun struct {
		job    *config.Job
		comb   matrix.Combination
		ctx    context.Context
		cancel context.CancelFunc
	}

	var runs []jobRun
	for _, job := range w.Jobs {
		// Combinations of one job share a context so that fail_fast can
		// cancel the in-flight siblings. Other jobs are unaffected.
		jobCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		for _, comb := range matrix.Expand(job) {
			runs = append(runs, jobRun{job: job, comb: comb, ctx: jobCtx, cancel: cancel})
		}
	}
	logger.Info("🚀 Starting workflow run.", "jobs", len(runs), "event", ev.Type)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		limiter = make(chan struct{}, e.opts.JobWorkers)
	)
	results := make([]*JobResult, len(runs))

	for i, jr := range runs {
		// Acquiring the slot before spawning keeps dispatch in declaration
		// order, so a fail_fast cancellation reaches every later sibling.
		limiter <- struct{}{}
		wg.Add(1)
		go func(i int, jr jobRun) {
			defer wg.Done()
			defer func() { <-limiter }()

			res := e.runJob(jr.ctx, jr.job, jr.comb, wfEnv, ev, runID)

			mu.Lock()
			results[i] = res
			mu.Unlock()

			if res.Status == StatusFailed && jr.job.FailFastEnabled() {
				jr.cancel()
			}
		}(i, jr)
	}
	wg.Wait()

	result.Jobs = results
	result.Finished = time.Now()

	status := result.Status()
	e.emit(ctx, events.Event{
		Kind: events.RunFinished, RunID: runID, Workflow: w.Name,
		Status: string(status), Time: result.Finished,
	})
	if status == StatusSuccess {
		logger.Info("🏁 Workflow run finished.", "status", status)
	} else {
		logger.Error("🏁 Workflow run finished.", "status", status)
	}

	return result, nil
}

// emit forwards a lifecycle event to the configured sink, if any.
func (e *Executor) emit(ctx context.Context, ev events.Event) {
	if e.opts.Sink == nil {
		return
	}
	e.opts.Sink.Emit(ctx, ev)
}

// stepWorkers resolves the worker cap handed to internally parallel steps.
func (e *Executor) stepWorkers() int {
	return e.opts.StepWorkers
}
