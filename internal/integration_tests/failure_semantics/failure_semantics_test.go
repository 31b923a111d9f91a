package failure_semantics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/vk/cigrid/internal/app"
	"github.com/vk/cigrid/internal/registry"
)

// mockModule registers a "failer" step that returns an injected error and
// a "spy" step that records whether it ran.
type mockModule struct {
	spyExecuted   *atomic.Bool
	alwaysSpyRan  *atomic.Bool
	injectedError error
}

func (m *mockModule) Register(r *registry.Registry) {
	r.RegisterStep("failer", &registry.RegisteredStep{
		NewInput: func() any { return nil },
		Fn: func(context.Context, *registry.StepContext, any) error {
			return m.injectedError
		},
	})
	r.RegisterStep("spy", &registry.RegisteredStep{
		NewInput: func() any { return nil },
		Fn: func(context.Context, *registry.StepContext, any) error {
			m.spyExecuted.Store(true)
			return nil
		},
	})
	r.RegisterStep("always_spy", &registry.RegisteredStep{
		NewInput: func() any { return nil },
		Fn: func(context.Context, *registry.StepContext, any) error {
			m.alwaysSpyRan.Store(true)
			return nil
		},
	})
}

func writeWorkflow(t *testing.T, hcl string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "wf.hcl"), []byte(hcl), 0o600); err != nil {
		t.Fatalf("writing workflow: %v", err)
	}
	return dir
}

func TestFailingStep_HaltsSequence_ButAlwaysStepStillRuns(t *testing.T) {
	// --- Arrange ---
	path := writeWorkflow(t, `
workflow "w" {
  on {
    dispatch {}
  }
  job "j" {
    step "failer" "breaks" {}
    step "spy" "after-failure" {}
    step "always_spy" "cleanup" { if = always() }
  }
}
`)
	mock := &mockModule{
		spyExecuted:   &atomic.Bool{},
		alwaysSpyRan:  &atomic.Bool{},
		injectedError: errors.New("handler failed as expected"),
	}
	testApp, _ := app.SetupAppTest(t, &app.Config{
		WorkflowPath: path,
		EventType:    "dispatch",
	}, mock)

	// --- Act ---
	err := testApp.Run(context.Background())

	// --- Assert ---
	if err == nil {
		t.Fatal("a failing step must fail the run")
	}
	if mock.spyExecuted.Load() {
		t.Error("step after a failure ran despite the implicit success() condition")
	}
	if !mock.alwaysSpyRan.Load() {
		t.Error("if = always() step did not run after the failure")
	}
}

func TestContinueOnError_StepFailureIsInformational(t *testing.T) {
	path := writeWorkflow(t, `
workflow "w" {
  on {
    dispatch {}
  }
  job "j" {
    step "failer" "diagnostics" { continue_on_error = true }
    step "spy" "next" {}
  }
}
`)
	mock := &mockModule{
		spyExecuted:   &atomic.Bool{},
		alwaysSpyRan:  &atomic.Bool{},
		injectedError: errors.New("diagnostics exploded"),
	}
	testApp, _ := app.SetupAppTest(t, &app.Config{
		WorkflowPath: path,
		EventType:    "dispatch",
	}, mock)

	err := testApp.Run(context.Background())

	if err != nil {
		t.Fatalf("an informational failure must not fail the run: %v", err)
	}
	if !mock.spyExecuted.Load() {
		t.Error("step after an informational failure did not run")
	}
}

// matrixRecorder registers an "os_probe" step that records the matrix os
// value it ran for, failing for the value named fail.
type matrixRecorder struct {
	mu   sync.Mutex
	seen []string
	fail string
}

type probeInput struct {
	OS string `cig:"os"`
}

func (m *matrixRecorder) Register(r *registry.Registry) {
	r.RegisterStep("os_probe", &registry.RegisteredStep{
		NewInput: func() any { return new(probeInput) },
		Fn: func(_ context.Context, _ *registry.StepContext, input any) error {
			in := input.(*probeInput)
			m.mu.Lock()
			m.seen = append(m.seen, in.OS)
			m.mu.Unlock()
			if in.OS == m.fail {
				return errors.New("probe failed on " + in.OS)
			}
			return nil
		},
	})
}

func (m *matrixRecorder) observed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.seen...)
}

const matrixWorkflowTemplate = `
workflow "w" {
  on {
    dispatch {}
  }
  job "test" {
    fail_fast = %s
    matrix {
      dimension "os" { values = ["ubuntu-latest", "macos-latest"] }
    }
    step "os_probe" "probe" {
      arguments { os = matrix.os }
    }
  }
}
`

func TestFailFastDisabled_SiblingCombinationStillReports(t *testing.T) {
	path := writeWorkflow(t, fmt.Sprintf(matrixWorkflowTemplate, "false"))
	mock := &matrixRecorder{fail: "ubuntu-latest"}
	testApp, _ := app.SetupAppTest(t, &app.Config{
		WorkflowPath: path,
		EventType:    "dispatch",
		JobWorkers:   1,
	}, mock)

	err := testApp.Run(context.Background())

	if err == nil {
		t.Fatal("a failed combination must fail the run")
	}
	seen := mock.observed()
	if len(seen) != 2 {
		t.Fatalf("with fail_fast disabled both combinations must execute, saw %v", seen)
	}
}

func TestFailFastEnabled_CancelsPendingCombination(t *testing.T) {
	path := writeWorkflow(t, fmt.Sprintf(matrixWorkflowTemplate, "true"))
	mock := &matrixRecorder{fail: "ubuntu-latest"}
	// A single worker serializes the combinations, making the
	// cancellation of the pending sibling deterministic.
	testApp, _ := app.SetupAppTest(t, &app.Config{
		WorkflowPath: path,
		EventType:    "dispatch",
		JobWorkers:   1,
	}, mock)

	err := testApp.Run(context.Background())

	if err == nil {
		t.Fatal("a failed combination must fail the run")
	}
	seen := mock.observed()
	if len(seen) != 1 || seen[0] != "ubuntu-latest" {
		t.Fatalf("fail_fast should cancel the pending combination, saw %v", seen)
	}
}
