package hcldef

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeWorkflow(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing workflow file: %v", err)
	}
	return path
}

const fullWorkflowHCL = `
workflow "examples" {
  on {
    push         { branches = ["main", "develop"] }
    pull_request { branches = ["main", "develop"] }
    schedule     { cron = "0 0 * * *" }
    dispatch {}
  }

  env = { EXPERIMENTAL = "1" }

  job "test" {
    fail_fast = false
    matrix {
      dimension "os"     { values = ["ubuntu-latest", "macos-latest"] }
      dimension "python" { values = ["3.10"] }
    }

    step "checkout" "sources" {}

    step "run" "doctests" {
      arguments { command = "pytest --doctest-modules" }
    }

    step "sharded_run" "notebooks" {
      if = always()
      arguments {
        include = "examples/**/*.ipynb"
        exclude = ["examples/deprecated", "examples/experimental"]
        command = "pytest --nbval-lax {files}"
      }
    }
  }
}
`

func TestLoad_FullWorkflow(t *testing.T) {
	path := writeWorkflow(t, "ci.hcl", fullWorkflowHCL)

	workflows, err := NewLoader().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(workflows) != 1 {
		t.Fatalf("expected 1 workflow, got %d", len(workflows))
	}

	w := workflows[0]
	if w.Name != "examples" {
		t.Errorf("Name = %q, want %q", w.Name, "examples")
	}
	if w.On.Push == nil || len(w.On.Push.Branches) != 2 {
		t.Errorf("push filter not translated: %+v", w.On.Push)
	}
	if w.On.PullRequest == nil {
		t.Error("pull_request filter not translated")
	}
	if len(w.On.Schedules) != 1 || w.On.Schedules[0] != "0 0 * * *" {
		t.Errorf("schedules = %v", w.On.Schedules)
	}
	if !w.On.Dispatch {
		t.Error("dispatch trigger not translated")
	}
	if w.Env == nil {
		t.Error("workflow env expression missing")
	}

	if len(w.Jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(w.Jobs))
	}
	job := w.Jobs[0]
	if job.FailFastEnabled() {
		t.Error("fail_fast = false not honored")
	}
	if len(job.Matrix) != 2 {
		t.Fatalf("expected 2 matrix dimensions, got %d", len(job.Matrix))
	}
	if job.Matrix[0].Name != "os" || job.Matrix[1].Name != "python" {
		t.Errorf("matrix dimension order not preserved: %v, %v", job.Matrix[0].Name, job.Matrix[1].Name)
	}

	if len(job.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(job.Steps))
	}
	if job.Steps[0].Type != "checkout" || job.Steps[0].Arguments != nil {
		t.Errorf("argument-less step mis-translated: %+v", job.Steps[0])
	}
	if job.Steps[1].If != nil {
		t.Error("step without if should have a nil condition")
	}
	if _, ok := job.Steps[1].Arguments["command"]; !ok {
		t.Error("run step command argument not captured")
	}
	notebooks := job.Steps[2]
	if notebooks.If == nil {
		t.Error("if = always() should be captured as an expression")
	}
	for _, arg := range []string{"include", "exclude", "command"} {
		if _, ok := notebooks.Arguments[arg]; !ok {
			t.Errorf("sharded_run argument %q not captured", arg)
		}
	}
}

func TestLoad_DefaultFailFastIsTrue(t *testing.T) {
	path := writeWorkflow(t, "ci.hcl", `
workflow "w" {
  on {
    dispatch {}
  }
  job "j" {
    step "run" "s" {
      arguments { command = "true" }
    }
  }
}
`)
	workflows, err := NewLoader().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !workflows[0].Jobs[0].FailFastEnabled() {
		t.Error("fail_fast should default to true")
	}
}

func TestLoad_RejectsInvalidCron(t *testing.T) {
	path := writeWorkflow(t, "ci.hcl", `
workflow "w" {
  on {
    schedule { cron = "99 99 * * *" }
  }
  job "j" {
    step "run" "s" {
      arguments { command = "true" }
    }
  }
}
`)
	_, err := NewLoader().Load(context.Background(), path)
	if err == nil || !strings.Contains(err.Error(), "cron") {
		t.Fatalf("expected a cron validation error, got %v", err)
	}
}

func TestLoad_RejectsMissingOnBlock(t *testing.T) {
	path := writeWorkflow(t, "ci.hcl", `
workflow "w" {
  job "j" {
    step "run" "s" {
      arguments { command = "true" }
    }
  }
}
`)
	if _, err := NewLoader().Load(context.Background(), path); err == nil {
		t.Fatal("expected an error for a workflow without an on block")
	}
}

func TestLoad_RejectsDuplicateJobNames(t *testing.T) {
	path := writeWorkflow(t, "ci.hcl", `
workflow "w" {
  on {
    dispatch {}
  }
  job "j" {
    step "run" "a" {
      arguments { command = "true" }
    }
  }
  job "j" {
    step "run" "b" {
      arguments { command = "true" }
    }
  }
}
`)
	if _, err := NewLoader().Load(context.Background(), path); err == nil {
		t.Fatal("expected an error for duplicate job names")
	}
}

func TestLoad_RejectsDuplicateWorkflowsAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	wf := `
workflow "w" {
  on {
    dispatch {}
  }
  job "j" {
    step "run" "s" {
      arguments { command = "true" }
    }
  }
}
`
	for _, name := range []string{"a.hcl", "b.hcl"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(wf), 0o600); err != nil {
			t.Fatalf("writing workflow file: %v", err)
		}
	}
	if _, err := NewLoader().Load(context.Background(), dir); err == nil {
		t.Fatal("expected an error for the same workflow name in two files")
	}
}

func TestLoad_ErrorsWhenNothingFound(t *testing.T) {
	if _, err := NewLoader().Load(context.Background(), t.TempDir()); err == nil {
		t.Fatal("expected an error when no workflow files exist")
	}
}
