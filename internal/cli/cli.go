package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/vk/cigrid/internal/app"
	"github.com/vk/cigrid/internal/trigger"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app
// Config, a boolean indicating if the program should exit cleanly, or an
// ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("cigrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
cigrid - A declarative CI workflow runner.

Usage:
  cigrid [options] [WORKFLOW_PATH]

Arguments:
  WORKFLOW_PATH
    Path to a single .hcl workflow file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	workflowsFlag := flagSet.String("workflows", "", "Path to the workflow file or directory.")
	wFlag := flagSet.String("w", "", "Path to the workflow file or directory (shorthand).")
	eventFlag := flagSet.String("event", "dispatch", "Event to deliver: 'push', 'pull_request', 'schedule' or 'dispatch'.")
	branchFlag := flagSet.String("branch", "main", "Branch the event refers to (push source / pull request target).")
	atFlag := flagSet.String("at", "", "Event time in RFC 3339 for schedule matching. Defaults to now.")
	srcFlag := flagSet.String("src", ".", "Source tree that checkout steps materialize into job workspaces.")
	secretsFlag := flagSet.String("secrets", "", "Path to a YAML file with the secret store.")
	planFlag := flagSet.Bool("plan", false, "List triggered workflows and matrix cells without executing.")
	workersFlag := flagSet.Int("workers", 4, "Number of matrix jobs executed concurrently.")
	stepWorkersFlag := flagSet.Int("step-workers", 0, "Worker cap for internally parallel steps. 0 means the logical CPU count.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	historyFlag := flagSet.String("history-db", "", "Path to the SQLite run-history database. Empty disables recording.")
	listRunsFlag := flagSet.Bool("list-runs", false, "List recent runs from the history database and exit.")
	eventsURLFlag := flagSet.String("events-url", "", "Comma-separated socket.io endpoints for live run events. Empty disables streaming.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *workflowsFlag != "" {
		path = *workflowsFlag
	} else if *wFlag != "" {
		path = *wFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Workflow path determined.", "path", path)

	if path == "" && !*listRunsFlag {
		slog.Debug("No workflow path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	if _, err := trigger.ParseEventType(*eventFlag); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	var at time.Time
	if *atFlag != "" {
		parsed, err := time.Parse(time.RFC3339, *atFlag)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid -at value %q: %v", *atFlag, err)}
		}
		at = parsed
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		WorkflowPath:    path,
		SourceDir:       *srcFlag,
		EventType:       *eventFlag,
		Branch:          *branchFlag,
		At:              at,
		SecretsPath:     *secretsFlag,
		Plan:            *planFlag,
		JobWorkers:      *workersFlag,
		StepWorkers:     *stepWorkersFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		HealthcheckPort: *healthPortFlag,
		HistoryDB:       *historyFlag,
		ListRuns:        *listRunsFlag,
		EventsURL:       *eventsURLFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.")
	return config, false, nil
}
