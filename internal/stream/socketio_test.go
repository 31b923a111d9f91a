package stream

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/vk/cigrid/internal/events"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEmit_DropsWhileDisconnected(t *testing.T) {
	s := &Sink{logger: discardLogger()}

	s.Emit(context.Background(), events.Event{Kind: events.RunStarted, RunID: "run-1", Time: time.Now()})
	s.Emit(context.Background(), events.Event{Kind: events.RunFinished, RunID: "run-1", Time: time.Now()})

	if got := s.dropped.Load(); got != 2 {
		t.Errorf("dropped = %d, want 2", got)
	}
}

func TestNewSink_RejectsUnparsableURL(t *testing.T) {
	if _, err := NewSink("://missing-scheme", discardLogger()); err == nil {
		t.Error("expected an error for an unparsable URL")
	}
}
