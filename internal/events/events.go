// Package events defines the run lifecycle events emitted by the executor
// and the sink interface observers implement. Sinks are best-effort: a
// failing sink never influences the outcome of a run.
package events

import (
	"context"
	"time"
)

// Kind classifies a lifecycle event.
type Kind string

const (
	RunStarted   Kind = "run_started"
	RunFinished  Kind = "run_finished"
	JobStarted   Kind = "job_started"
	JobFinished  Kind = "job_finished"
	StepStarted  Kind = "step_started"
	StepFinished Kind = "step_finished"
	StepSkipped  Kind = "step_skipped"
)

// Event is a single lifecycle notification.
type Event struct {
	Kind     Kind      `json:"kind"`
	RunID    string    `json:"run_id"`
	Workflow string    `json:"workflow"`
	Job      string    `json:"job,omitempty"`
	Step     string    `json:"step,omitempty"`
	Status   string    `json:"status,omitempty"`
	Error    string    `json:"error,omitempty"`
	Time     time.Time `json:"time"`
}

// Sink receives lifecycle events. Emit must not block the run for long and
// must swallow its own failures.
type Sink interface {
	Emit(ctx context.Context, ev Event)
	Close() error
}

// Multi fans an event out to several sinks.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, ev Event) {
	for _, s := range m {
		s.Emit(ctx, ev)
	}
}

func (m Multi) Close() error {
	var firstErr error
	for _, s := range m {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
