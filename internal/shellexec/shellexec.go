// Package shellexec runs external commands for step handlers, streaming
// their combined output into the structured log. The commands themselves
// are opaque collaborators: only their invocation and exit code matter.
package shellexec

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/vk/cigrid/internal/ctxlog"
)

// Run executes a shell command in workDir with the given environment and
// waits for it. Output lines are streamed to the context logger. The shell
// defaults to "sh" when empty.
func Run(ctx context.Context, shell, workDir, command string, env []string) error {
	if shell == "" {
		shell = "sh"
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Spawning command.", "shell", shell, "command", command)

	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Dir = workDir
	cmd.Env = env

	out := &lineWriter{logger: logger}
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	out.flush()

	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("command cancelled: %w", ctx.Err())
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return fmt.Errorf("command exited with code %d", exitErr.ExitCode())
		}
		return fmt.Errorf("spawning command: %w", err)
	}
	return nil
}

// Quote renders a string as a single-quoted POSIX shell word.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// lineWriter forwards writes to the logger one line at a time, buffering
// partial lines across writes. Command output is interleaved from stdout
// and stderr, which is fine for a CI log.
type lineWriter struct {
	logger *slog.Logger
	mu     sync.Mutex
	buf    bytes.Buffer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Partial line: keep it buffered for the next write.
			w.buf.WriteString(line)
			break
		}
		w.logger.Info(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

// flush logs any trailing output that did not end in a newline.
func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.logger.Info(strings.TrimRight(w.buf.String(), "\r\n"))
		w.buf.Reset()
	}
}
