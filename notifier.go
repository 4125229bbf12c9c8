package sessioncore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// NoticeKind classifies a user-facing notification.
type NoticeKind uint8

const (
	NoticeInfo NoticeKind = iota
	NoticeWarning
	NoticeError
)

// String returns a short lowercase name for logs.
func (k NoticeKind) String() string {
	switch k {
	case NoticeWarning:
		return "warning"
	case NoticeError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a single fire-and-forget notification surfaced by the engine
// (login failed, session refreshed out from under you, and so on). The
// engine never queries a sink for state.
type Notice struct {
	Kind    NoticeKind
	Message string
	At      time.Time
}

// NotifySink receives [Notice] values from the engine's dispatcher.
// Implementations must not block for long; the dispatcher runs them on a
// single goroutine.
type NotifySink interface {
	Emit(ctx context.Context, n Notice)
}

// NoOpSink is a [NotifySink] that silently discards all notices.
type NoOpSink struct{}

// Emit implements [NotifySink].
func (NoOpSink) Emit(context.Context, Notice) {}

// ChannelSink is a buffered channel-backed [NotifySink], suitable for a UI
// toast queue. When the channel is full the notice is dropped; a toast that
// cannot be shown now is not worth blocking the engine for.
type ChannelSink struct {
	ch chan Notice
}

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{ch: make(chan Notice, buffer)}
}

// Emit implements [NotifySink].
func (s *ChannelSink) Emit(_ context.Context, n Notice) {
	select {
	case s.ch <- n:
	default:
	}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan Notice {
	return s.ch
}

// LogSink writes notices to a zerolog logger at a level matching the kind.
type LogSink struct {
	Logger zerolog.Logger
}

// Emit implements [NotifySink].
func (s LogSink) Emit(_ context.Context, n Notice) {
	var ev *zerolog.Event
	switch n.Kind {
	case NoticeError:
		ev = s.Logger.Error()
	case NoticeWarning:
		ev = s.Logger.Warn()
	default:
		ev = s.Logger.Info()
	}
	ev.Time("at", n.At).Msg(n.Message)
}

// notifyDispatcher decouples the engine from sink latency: notices go
// through a buffered channel serviced by one goroutine, and Close drains
// what is already queued.
type notifyDispatcher struct {
	cfg       NotifyConfig
	sink      NotifySink
	ch        chan Notice
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newNotifyDispatcher(cfg NotifyConfig, sink NotifySink) *notifyDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &notifyDispatcher{
		cfg:  cfg,
		sink: sink,
		ch:   make(chan Notice, cfg.BufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *notifyDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case n := <-d.ch:
			d.sink.Emit(context.Background(), n)
		case <-d.done:
			for {
				select {
				case n := <-d.ch:
					d.sink.Emit(context.Background(), n)
				default:
					return
				}
			}
		}
	}
}

func (d *notifyDispatcher) Notify(ctx context.Context, kind NoticeKind, message string, at time.Time) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	n := Notice{Kind: kind, Message: message, At: at}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- n:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- n:
	case <-ctx.Done():
	case <-d.done:
	}
}

func (d *notifyDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *notifyDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
