package run

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/vk/cigrid/internal/registry"
)

func TestOnRunCommand_SucceedsAndSeesEnv(t *testing.T) {
	ws := t.TempDir()
	sc := &registry.StepContext{
		Workspace: ws,
		Env:       map[string]string{"PATH": os.Getenv("PATH"), "MARKER": "from-step-env"},
	}

	err := OnRunCommand(context.Background(), sc, &Input{
		Command: `printf '%s' "$MARKER" > marker.txt`,
	})
	if err != nil {
		t.Fatalf("OnRunCommand returned error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(ws, "marker.txt"))
	if err != nil {
		t.Fatalf("reading marker file: %v", err)
	}
	if string(data) != "from-step-env" {
		t.Errorf("marker = %q, want %q", data, "from-step-env")
	}
}

func TestOnRunCommand_NonZeroExitIsAnError(t *testing.T) {
	sc := &registry.StepContext{
		Workspace: t.TempDir(),
		Env:       map[string]string{"PATH": os.Getenv("PATH")},
	}

	if err := OnRunCommand(context.Background(), sc, &Input{Command: "exit 3"}); err == nil {
		t.Error("expected an error for a failing command")
	}
}

func TestOnRunCommand_RejectsAbsoluteWorkingDir(t *testing.T) {
	sc := &registry.StepContext{Workspace: t.TempDir()}

	err := OnRunCommand(context.Background(), sc, &Input{Command: "true", WorkingDir: "/etc"})
	if err == nil {
		t.Error("expected an error for an absolute working_dir")
	}
}
