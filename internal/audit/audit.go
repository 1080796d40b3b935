// Package audit defines the audit sink consumed by the gateway. Every
// invocation decision is emitted fire-and-forget: a failing sink must never
// block or fail the call it describes.
package audit

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Decision is the outcome of one gateway invocation.
type Decision string

const (
	// DecisionAllow indicates the call passed every check and was dispatched.
	DecisionAllow Decision = "allow"

	// DecisionDeny indicates the call failed a check and was not dispatched.
	DecisionDeny Decision = "deny"
)

// Event is one audit record for a gateway invocation.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	ThreadID  uuid.UUID `json:"thread_id"`
	ToolID    string    `json:"tool_id"`
	Decision  Decision  `json:"decision"`
	Reason    string    `json:"reason,omitempty"`
}

// NewEvent builds an event with a UUIDv7 id and UTC timestamp.
func NewEvent(threadID uuid.UUID, toolID string, decision Decision, reason string) Event {
	return Event{
		ID:        uuid.Must(uuid.NewV7()),
		Timestamp: time.Now().UTC(),
		ThreadID:  threadID,
		ToolID:    toolID,
		Decision:  decision,
		Reason:    reason,
	}
}

// Sink receives audit events. Emit must not block: implementations either
// write synchronously to something cheap (a logger) or buffer and drop.
type Sink interface {
	Emit(event Event)
}

// SlogSink writes events through a structured logger.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a Sink that logs every event at info (allow) or warn
// (deny) level.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger}
}

// Emit implements Sink.
func (s *SlogSink) Emit(event Event) {
	attrs := []any{
		slog.String("audit_id", event.ID.String()),
		slog.String("thread_id", event.ThreadID.String()),
		slog.String("tool_id", event.ToolID),
		slog.String("decision", string(event.Decision)),
	}
	if event.Reason != "" {
		attrs = append(attrs, slog.String("reason", event.Reason))
	}

	if event.Decision == DecisionAllow {
		s.logger.Info("tool invocation allowed", attrs...)
		return
	}
	s.logger.Warn("tool invocation denied", attrs...)
}

// NopSink discards every event.
type NopSink struct{}

// Emit implements Sink.
func (NopSink) Emit(Event) {}
