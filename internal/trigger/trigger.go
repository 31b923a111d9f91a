// Package trigger implements the trigger policy: the pure decision of
// whether a source-control event creates a run of a given workflow.
package trigger

import (
	"fmt"
	"path"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vk/cigrid/internal/config"
)

// EventType identifies the kind of source-control event being delivered.
type EventType string

const (
	// Push is a branch push event.
	Push EventType = "push"
	// PullRequest is a pull request event; Branch carries the target
	// branch, the source branch is irrelevant to matching.
	PullRequest EventType = "pull_request"
	// Schedule is a timer event; Time carries the firing instant.
	Schedule EventType = "schedule"
	// Dispatch is a manual invocation.
	Dispatch EventType = "dispatch"
)

// ParseEventType validates a user-supplied event type string.
func ParseEventType(s string) (EventType, error) {
	switch EventType(s) {
	case Push, PullRequest, Schedule, Dispatch:
		return EventType(s), nil
	}
	return "", fmt.Errorf("unknown event type %q (expected push, pull_request, schedule or dispatch)", s)
}

// Event is a single source-control event to match workflows against.
type Event struct {
	Type   EventType
	Branch string
	Time   time.Time
}

// Matches reports whether the event triggers the workflow. The decision is
// pure: no side effects and no error conditions beyond an event type the
// policy cannot recognize.
func Matches(w *config.Workflow, ev Event) (bool, error) {
	switch ev.Type {
	case Push:
		return matchBranches(w.On.Push, ev.Branch), nil
	case PullRequest:
		return matchBranches(w.On.PullRequest, ev.Branch), nil
	case Schedule:
		return matchSchedules(w.On.Schedules, ev.Time)
	case Dispatch:
		return w.On.Dispatch, nil
	}
	return false, fmt.Errorf("unknown event type %q", ev.Type)
}

// matchBranches applies a branch filter. A nil filter means the trigger is
// not declared; an empty branch list admits every branch. Patterns use
// path.Match glob syntax in addition to exact names.
func matchBranches(f *config.BranchFilter, branch string) bool {
	if f == nil {
		return false
	}
	if len(f.Branches) == 0 {
		return true
	}
	for _, pattern := range f.Branches {
		if pattern == branch {
			return true
		}
		if ok, err := path.Match(pattern, branch); err == nil && ok {
			return true
		}
	}
	return false
}

// matchSchedules reports whether any declared cron expression fires within
// the minute of t.
func matchSchedules(specs []string, t time.Time) (bool, error) {
	for _, spec := range specs {
		sched, err := ParseSchedule(spec)
		if err != nil {
			return false, fmt.Errorf("invalid cron expression %q: %w", spec, err)
		}
		if firesAt(sched, t) {
			return true, nil
		}
	}
	return false, nil
}

// ParseSchedule parses a standard five-field cron expression.
func ParseSchedule(spec string) (cron.Schedule, error) {
	return cron.ParseStandard(spec)
}

// firesAt reports whether the schedule fires during the minute containing t.
// Cron has minute granularity, so the check truncates t and asks the
// schedule for its next activation strictly after the previous minute.
func firesAt(sched cron.Schedule, t time.Time) bool {
	minute := t.Truncate(time.Minute)
	return sched.Next(minute.Add(-time.Second)).Equal(minute)
}
