// Package stream emits run lifecycle events to a socket.io endpoint, the
// transport a live CI dashboard subscribes to. The sink is strictly
// best-effort: connection problems are logged and events are dropped, the
// run itself is never affected.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/cigrid/internal/events"
)

// EventName is the socket.io event under which lifecycle payloads are
// emitted.
const EventName = "cigrid:event"

// connectTimeout bounds how long NewSink waits for the initial connection.
const connectTimeout = 5 * time.Second

// Sink streams events to a socket.io server. It implements events.Sink.
type Sink struct {
	io        *socket.Socket
	logger    *slog.Logger
	connected atomic.Bool
	dropped   atomic.Int64
}

// NewSink connects to the given socket.io URL (path and namespace taken
// from the URL) and returns the sink. The connection attempt is bounded;
// on failure the sink is still returned and keeps retrying in the
// background, dropping events meanwhile.
func NewSink(rawURL string, logger *slog.Logger) (*Sink, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing events URL: %w", err)
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		opts.SetPath(parsedURL.Path)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket("/", opts)

	s := &Sink{io: io, logger: logger.With("sink", "socketio", "url", rawURL)}

	ready := make(chan struct{}, 1)
	io.On(types.EventName("connect"), func(...any) {
		s.connected.Store(true)
		s.logger.Info("Event stream connected.", "sid", io.Id())
		select {
		case ready <- struct{}{}:
		default:
		}
	})
	io.On(types.EventName("disconnect"), func(...any) {
		s.connected.Store(false)
		s.logger.Warn("Event stream disconnected.")
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		s.logger.Warn("Event stream connection error.", "error", fmt.Sprint(errs...))
	})

	io.Connect()

	select {
	case <-ready:
	case <-time.After(connectTimeout):
		s.logger.Warn("Event stream not connected yet, events will be dropped until it is.")
	}

	return s, nil
}

// Emit sends one lifecycle event, dropping it when disconnected.
func (s *Sink) Emit(ctx context.Context, ev events.Event) {
	if !s.connected.Load() {
		s.dropped.Add(1)
		return
	}
	s.io.Emit(EventName, ev)
}

// Close disconnects from the server and reports how many events were
// dropped, if any.
func (s *Sink) Close() error {
	if n := s.dropped.Load(); n > 0 {
		s.logger.Warn("Events dropped while streaming.", "count", n)
	}
	s.io.Disconnect()
	return nil
}
