package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leapgate/pkg/core"
)

// DefaultBuffer is the number of entries queued before new ones are dropped.
const DefaultBuffer = 1024

// Sink persists audit entries.
type Sink interface {
	Write(ctx context.Context, e Entry) error
	Close() error
}

// Recorder accepts audit entries.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// Logger queues entries and writes them to every sink from one goroutine.
type Logger struct {
	sinks  []Sink
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex // guards closed and sends on queue
	closed  bool
	queue   chan Entry
	done    chan struct{}
	dropped atomic.Int64
}

// NewLogger starts a Logger. buffer <= 0 uses DefaultBuffer. A nil logger
// discards diagnostics.
func NewLogger(buffer int, logger *slog.Logger, sinks ...Sink) *Logger {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	l := &Logger{
		sinks:  sinks,
		logger: logger,
		now:    time.Now,
		queue:  make(chan Entry, buffer),
		done:   make(chan struct{}),
	}
	go l.run()
	return l
}

// Record fills in the id, time and actor of e and queues it. When the queue
// is full the entry is dropped with a warning.
func (l *Logger) Record(ctx context.Context, e Entry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = l.now().UTC()
	}
	if e.Actor == "" {
		e.Actor = core.ActorFromContext(ctx)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.drop(e, "audit logger closed")
		return
	}
	select {
	case l.queue <- e:
	default:
		l.drop(e, "audit buffer full")
	}
}

func (l *Logger) drop(e Entry, reason string) {
	l.dropped.Add(1)
	l.logger.Warn("dropping audit entry",
		slog.String("reason", reason),
		slog.String("id", e.ID),
		slog.String("action", string(e.Action)),
		slog.String("datasource", e.DataSourceID))
}

// Dropped returns how many entries were discarded.
func (l *Logger) Dropped() int64 {
	return l.dropped.Load()
}

func (l *Logger) run() {
	defer close(l.done)
	for e := range l.queue {
		for _, s := range l.sinks {
			if err := s.Write(context.Background(), e); err != nil {
				l.logger.Warn("audit sink failed",
					slog.String("id", e.ID),
					slog.String("error", err.Error()))
			}
		}
	}
}

// Close flushes queued entries and closes the sinks. It waits until the
// queue drains or ctx is done.
func (l *Logger) Close(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	select {
	case <-l.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	var errs []error
	for _, s := range l.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SlogSink writes entries as structured log lines.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a sink logging each entry at info level.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger}
}

// Write implements Sink.
func (s *SlogSink) Write(ctx context.Context, e Entry) error {
	attrs := []slog.Attr{
		slog.String("id", e.ID),
		slog.String("actor", e.Actor),
		slog.String("action", string(e.Action)),
		slog.String("datasource", e.DataSourceID),
		slog.Bool("read_only", e.ReadOnly),
		slog.Int64("duration_ms", e.DurationMs),
		slog.String("outcome", string(e.Outcome)),
	}
	if e.SQLHash != "" {
		attrs = append(attrs, slog.String("sql_hash", e.SQLHash))
	}
	if e.Error != "" {
		attrs = append(attrs, slog.String("error", e.Error))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
	return nil
}

// Close implements Sink.
func (s *SlogSink) Close() error { return nil }

var _ Recorder = (*Logger)(nil)
