package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vk/cigrid/internal/config"
	"github.com/vk/cigrid/internal/ctxlog"
	"github.com/vk/cigrid/internal/events"
	"github.com/vk/cigrid/internal/executor"
	"github.com/vk/cigrid/internal/history"
	"github.com/vk/cigrid/internal/matrix"
	"github.com/vk/cigrid/internal/secrets"
	"github.com/vk/cigrid/internal/stream"
	"github.com/vk/cigrid/internal/trigger"
)

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.ListRuns {
		return a.listRuns(ctx)
	}

	if a.config.HealthcheckPort > 0 {
		go a.startHealthcheckServer(a.config.HealthcheckPort)
	}

	evType, err := trigger.ParseEventType(a.config.EventType)
	if err != nil {
		return err
	}
	ev := trigger.Event{Type: evType, Branch: a.config.Branch, Time: a.config.At}

	triggered, err := a.matchWorkflows(ev)
	if err != nil {
		return err
	}
	if len(triggered) == 0 {
		a.logger.Info("No workflows triggered by event.", "event", ev.Type, "branch", ev.Branch)
		return nil
	}

	if a.config.Plan {
		return a.plan(triggered, ev)
	}
	return a.execute(ctx, triggered, ev)
}

// matchWorkflows applies the trigger policy of every loaded workflow.
func (a *App) matchWorkflows(ev trigger.Event) ([]*config.Workflow, error) {
	var triggered []*config.Workflow
	for _, w := range a.workflows {
		ok, err := trigger.Matches(w, ev)
		if err != nil {
			return nil, fmt.Errorf("matching workflow %q: %w", w.Name, err)
		}
		a.logger.Debug("Trigger policy evaluated.", "workflow", w.Name, "triggered", ok)
		if ok {
			triggered = append(triggered, w)
		}
	}
	return triggered, nil
}

// plan prints the triggered workflows and their matrix cells without
// executing anything.
func (a *App) plan(workflows []*config.Workflow, ev trigger.Event) error {
	for _, w := range workflows {
		fmt.Fprintf(a.outW, "workflow %q triggered by %s\n", w.Name, ev.Type)
		for _, job := range w.Jobs {
			for _, comb := range matrix.Expand(job) {
				fmt.Fprintf(a.outW, "  job %s (%d steps, fail_fast=%v)\n", comb.ID(), len(job.Steps), job.FailFastEnabled())
			}
		}
	}
	return nil
}

// execute runs every triggered workflow and records the outcomes.
func (a *App) execute(ctx context.Context, workflows []*config.Workflow, ev trigger.Event) error {
	secretStore, err := secrets.LoadFile(a.config.SecretsPath)
	if err != nil {
		return err
	}

	var sink events.Sink
	if a.config.EventsURL != "" {
		var sinks events.Multi
		for _, u := range strings.Split(a.config.EventsURL, ",") {
			s, err := stream.NewSink(strings.TrimSpace(u), a.logger)
			if err != nil {
				return fmt.Errorf("configuring event stream: %w", err)
			}
			sinks = append(sinks, s)
		}
		if len(sinks) == 1 {
			sink = sinks[0]
		} else {
			sink = sinks
		}
		defer sink.Close()
	}

	var store *history.Store
	if a.config.HistoryDB != "" {
		store, err = history.Open(a.config.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	exec := executor.New(a.registry, executor.Options{
		SourceDir:   a.config.SourceDir,
		Secrets:     secretStore,
		JobWorkers:  a.config.JobWorkers,
		StepWorkers: a.config.StepWorkers,
		Sink:        sink,
	})

	failed := 0
	for _, w := range workflows {
		runID := uuid.NewString()
		runCtx := ctxlog.WithLogger(ctx, a.runLogger(w.Name, runID))
		result, err := exec.RunWorkflow(runCtx, w, ev, runID)
		if err != nil {
			return fmt.Errorf("running workflow %q: %w", w.Name, err)
		}

		if store != nil {
			if err := store.RecordRun(ctx, result, ev); err != nil {
				// History is an observer; its failure is not a run failure.
				a.logger.Warn("Failed to record run history.", "error", err)
			}
		}

		if result.Failed() {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d triggered workflows failed", failed, len(workflows))
	}
	return nil
}

// listRuns prints recent runs from the history database.
func (a *App) listRuns(ctx context.Context) error {
	store, err := history.Open(a.config.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, 20)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(a.outW, "no recorded runs")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(a.outW, "%s  %-10s  %-12s  %s/%s  %s\n",
			r.Started.Local().Format("2006-01-02 15:04:05"), r.Status, r.Workflow, r.Event, r.Branch, r.ID)
	}
	return nil
}
