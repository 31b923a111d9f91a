package app

import (
	"errors"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// WorkflowPath points at a single .hcl file or a directory of them.
	WorkflowPath string
	// SourceDir is the source tree checkout steps materialize.
	SourceDir string

	// Event description the workflows are matched against.
	EventType string
	Branch    string
	At        time.Time

	SecretsPath string
	// Plan lists the triggered workflows and their matrix cells without
	// executing anything.
	Plan bool

	JobWorkers  int
	StepWorkers int

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	// HistoryDB enables run-history recording when non-empty.
	HistoryDB string
	// ListRuns prints recent runs from the history database and exits.
	ListRuns bool

	// EventsURL enables live event streaming when non-empty. Several
	// endpoints may be given, comma-separated.
	EventsURL string
}

// NewConfig validates a Config and applies defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ListRuns {
		if cfg.HistoryDB == "" {
			return nil, errors.New("-list-runs requires -history-db")
		}
		return &cfg, nil
	}
	if cfg.WorkflowPath == "" {
		return nil, errors.New("a workflow path is required")
	}
	if cfg.At.IsZero() {
		cfg.At = time.Now()
	}
	if cfg.JobWorkers <= 0 {
		cfg.JobWorkers = 4
	}
	return &cfg, nil
}
