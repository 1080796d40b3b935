package audit

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// AsyncSink decouples emitters from a potentially slow downstream sink with a
// bounded queue and a single worker goroutine. When the queue is full the
// event is dropped and counted; audit failure must never block a tool call.
type AsyncSink struct {
	next    Sink
	queue   chan Event
	logger  *slog.Logger
	dropped atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
}

// NewAsyncSink creates an AsyncSink in front of next with the given queue
// size and starts its worker.
func NewAsyncSink(next Sink, bufferSize int, logger *slog.Logger) *AsyncSink {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	s := &AsyncSink{
		next:   next,
		queue:  make(chan Event, bufferSize),
		logger: logger,
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for event := range s.queue {
		s.next.Emit(event)
	}
}

// Emit implements Sink. Never blocks: a full queue drops the event.
func (s *AsyncSink) Emit(event Event) {
	select {
	case s.queue <- event:
	default:
		dropped := s.dropped.Add(1)
		if s.logger != nil {
			s.logger.Warn("audit queue full, event dropped",
				slog.String("tool_id", event.ToolID),
				slog.Int64("dropped_total", dropped))
		}
	}
}

// Dropped returns how many events were dropped due to a full queue.
func (s *AsyncSink) Dropped() int64 {
	return s.dropped.Load()
}

// Close drains the queue and stops the worker. Emit calls after Close panic;
// callers stop emitting before closing.
func (s *AsyncSink) Close() {
	s.closeOnce.Do(func() {
		close(s.queue)
		<-s.done
	})
}
