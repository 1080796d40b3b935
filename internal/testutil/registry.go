// Package testutil provides in-memory fakes shared by tests and the CLI
// simulator: a tool registry, an audit-event collector, and a fixed clock.
package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/allisson/warden/internal/audit"
	tooldomain "github.com/allisson/warden/internal/tool/domain"
)

// Registry is an in-memory ToolLookup.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]tooldomain.ToolDefinition
	gets  atomic.Int64
}

// NewRegistry creates a Registry holding the given definitions.
func NewRegistry(definitions ...tooldomain.ToolDefinition) *Registry {
	r := &Registry{tools: make(map[string]tooldomain.ToolDefinition, len(definitions))}
	for _, def := range definitions {
		r.tools[def.ToolID] = def
	}
	return r
}

// Add registers or replaces a definition.
func (r *Registry) Add(definition tooldomain.ToolDefinition) {
	r.mu.Lock()
	r.tools[definition.ToolID] = definition
	r.mu.Unlock()
}

// Get implements tooldomain.ToolLookup. Unknown ids return a nil definition.
func (r *Registry) Get(_ context.Context, toolID string) (*tooldomain.ToolDefinition, error) {
	r.gets.Add(1)

	r.mu.RLock()
	defer r.mu.RUnlock()
	definition, ok := r.tools[toolID]
	if !ok {
		return nil, nil
	}
	return &definition, nil
}

// GetCalls returns how many lookups were performed, for cache assertions.
func (r *Registry) GetCalls() int64 {
	return r.gets.Load()
}

// Executor builds an executor reference for tool definitions.
func Executor(toolID string) *string {
	return &toolID
}

// AuditCollector is an audit.Sink that records every event.
type AuditCollector struct {
	mu     sync.Mutex
	events []audit.Event
}

// NewAuditCollector creates an empty collector.
func NewAuditCollector() *AuditCollector {
	return &AuditCollector{}
}

// Emit implements audit.Sink.
func (c *AuditCollector) Emit(event audit.Event) {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
}

// Events returns a snapshot of the recorded events.
func (c *AuditCollector) Events() []audit.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]audit.Event(nil), c.events...)
}

// FixedClock returns a clock function frozen at the given instant.
func FixedClock(instant time.Time) func() time.Time {
	return func() time.Time { return instant }
}
