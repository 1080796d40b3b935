package audit

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// collectorSink records events; optionally blocks until released.
type collectorSink struct {
	mu     sync.Mutex
	events []Event
	gate   chan struct{}
}

func (c *collectorSink) Emit(event Event) {
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
}

func (c *collectorSink) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestNewEvent(t *testing.T) {
	threadID := uuid.Must(uuid.NewV7())
	event := NewEvent(threadID, "shell.run", DecisionDeny, "missing capability")

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, threadID, event.ThreadID)
	assert.Equal(t, "shell.run", event.ToolID)
	assert.Equal(t, DecisionDeny, event.Decision)
	assert.Equal(t, "missing capability", event.Reason)
}

func TestSlogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	sink := NewSlogSink(logger)

	sink.Emit(NewEvent(uuid.Must(uuid.NewV7()), "shell.run", DecisionAllow, ""))
	sink.Emit(NewEvent(uuid.Must(uuid.NewV7()), "http.get", DecisionDeny, "token expired"))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var allow map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &allow))
	assert.Equal(t, "INFO", allow["level"])
	assert.Equal(t, "allow", allow["decision"])
	assert.Equal(t, "shell.run", allow["tool_id"])

	var deny map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &deny))
	assert.Equal(t, "WARN", deny["level"])
	assert.Equal(t, "deny", deny["decision"])
	assert.Equal(t, "token expired", deny["reason"])
}

func TestAsyncSink_DeliversAndCloses(t *testing.T) {
	defer goleak.VerifyNone(t)

	collector := &collectorSink{}
	sink := NewAsyncSink(collector, 16, slog.New(slog.DiscardHandler))

	for i := 0; i < 10; i++ {
		sink.Emit(NewEvent(uuid.Must(uuid.NewV7()), "shell.run", DecisionAllow, ""))
	}
	sink.Close()

	assert.Equal(t, 10, collector.len())
	assert.Equal(t, int64(0), sink.Dropped())
}

func TestAsyncSink_DropsWhenFull(t *testing.T) {
	defer goleak.VerifyNone(t)

	gate := make(chan struct{})
	collector := &collectorSink{gate: gate}
	sink := NewAsyncSink(collector, 1, slog.New(slog.DiscardHandler))

	// Worker blocks on the first event; the buffer holds one more; the rest drop.
	for i := 0; i < 5; i++ {
		sink.Emit(NewEvent(uuid.Must(uuid.NewV7()), "shell.run", DecisionAllow, ""))
	}
	assert.GreaterOrEqual(t, sink.Dropped(), int64(3))

	close(gate)
	sink.Close()
}

func TestAsyncSink_CloseIsIdempotent(t *testing.T) {
	sink := NewAsyncSink(&collectorSink{}, 4, nil)
	sink.Close()
	sink.Close()
}
