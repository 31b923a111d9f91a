package trigger_policy

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vk/cigrid/internal/app"
)

const workflowHCL = `
workflow "examples" {
  on {
    push         { branches = ["main", "develop"] }
    pull_request { branches = ["main", "develop"] }
    schedule     { cron = "0 0 * * *" }
    dispatch {}
  }

  job "test" {
    matrix {
      dimension "os"             { values = ["ubuntu-latest", "macos-latest"] }
      dimension "python-version" { values = ["3.10"] }
    }
    step "env_info" "environment" { continue_on_error = true }
  }
}
`

func setup(t *testing.T, cfg *app.Config) (*app.App, *app.SafeBuffer) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "examples.hcl"), []byte(workflowHCL), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.WorkflowPath = dir
	return app.SetupAppTest(t, cfg)
}

func TestPlan_PushToMainListsEveryMatrixCell(t *testing.T) {
	testApp, out := setup(t, &app.Config{
		EventType: "push",
		Branch:    "main",
		Plan:      true,
	})

	if err := testApp.Run(context.Background()); err != nil {
		t.Fatalf("plan run failed: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, `workflow "examples" triggered by push`) {
		t.Errorf("missing trigger line in plan output:\n%s", got)
	}
	for _, cell := range []string{
		"job test (ubuntu-latest, 3.10)",
		"job test (macos-latest, 3.10)",
	} {
		if !strings.Contains(got, cell) {
			t.Errorf("plan output missing matrix cell %q:\n%s", cell, got)
		}
	}
}

func TestPlan_PushToFeatureBranchTriggersNothing(t *testing.T) {
	testApp, out := setup(t, &app.Config{
		EventType: "push",
		Branch:    "feature/shiny",
		Plan:      true,
	})

	if err := testApp.Run(context.Background()); err != nil {
		t.Fatalf("plan run failed: %v", err)
	}

	if strings.Contains(out.String(), "triggered by") {
		t.Errorf("feature branch push should not trigger the workflow:\n%s", out.String())
	}
}

func TestPlan_ScheduleFiresAtMidnightOnly(t *testing.T) {
	midnight := time.Date(2026, 8, 24, 0, 0, 30, 0, time.UTC)
	noon := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	testApp, out := setup(t, &app.Config{EventType: "schedule", At: midnight, Plan: true})
	if err := testApp.Run(context.Background()); err != nil {
		t.Fatalf("plan run failed: %v", err)
	}
	if !strings.Contains(out.String(), "triggered by schedule") {
		t.Errorf("midnight schedule event should trigger the workflow:\n%s", out.String())
	}

	testApp, out = setup(t, &app.Config{EventType: "schedule", At: noon, Plan: true})
	if err := testApp.Run(context.Background()); err != nil {
		t.Fatalf("plan run failed: %v", err)
	}
	if strings.Contains(out.String(), "triggered by") {
		t.Errorf("noon schedule event should not trigger the workflow:\n%s", out.String())
	}
}

func TestRun_DispatchExecutesTheWorkflow(t *testing.T) {
	testApp, out := setup(t, &app.Config{EventType: "dispatch", JobWorkers: 2})

	if err := testApp.Run(context.Background()); err != nil {
		t.Fatalf("dispatch run failed: %v", err)
	}

	if !strings.Contains(out.String(), "🏁") {
		t.Errorf("run did not log a completion marker:\n%s", out.String())
	}
}
