// Package domain defines tool-registry data consumed by the authorization
// kernel: tool definitions, the closed tool-type enum, and the lookup
// interface backed by the external tool registry.
package domain

import "context"

// ToolType classifies a tool definition. The set is closed: a new type is a
// compile error until every switch over ToolType is updated.
type ToolType string

const (
	// ToolTypePrimitive is a terminal, non-delegating execution capability
	// (process spawn, HTTP call). The only type without an executor.
	ToolTypePrimitive ToolType = "primitive"

	// ToolTypeRuntime executes through a language or shell runtime.
	ToolTypeRuntime ToolType = "runtime"

	// ToolTypeMCPServer is an MCP server definition.
	ToolTypeMCPServer ToolType = "mcp_server"

	// ToolTypeMCPTool is a tool exposed by an MCP server.
	ToolTypeMCPTool ToolType = "mcp_tool"

	// ToolTypeScript is a scripted tool delegating to a runtime.
	ToolTypeScript ToolType = "script"

	// ToolTypeAPI is a declarative API-call tool.
	ToolTypeAPI ToolType = "api"
)

// Valid reports whether the tool type is a known member of the enum.
func (t ToolType) Valid() bool {
	switch t {
	case ToolTypePrimitive, ToolTypeRuntime, ToolTypeMCPServer, ToolTypeMCPTool, ToolTypeScript, ToolTypeAPI:
		return true
	}
	return false
}

// Well-known primitive tool ids. The bootstrap chains for self-describing
// tools bottom out at these; the registry returns them as ordinary
// primitive-type definitions.
const (
	PrimitiveSubprocess = "subprocess"
	PrimitiveHTTPClient = "http_client"
)

// ToolDefinition describes one tool in the registry. Owned by the registry,
// consumed here. ExecutorID is nil iff the tool is a primitive; every
// non-primitive must reach a primitive through a finite, acyclic executor chain.
type ToolDefinition struct {
	ToolID               string   `json:"tool_id"`
	ToolType             ToolType `json:"tool_type"`
	ExecutorID           *string  `json:"executor_id,omitempty"`
	RequiredCapabilities []string `json:"required_capabilities,omitempty"`
}

// ToolLookup resolves tool ids against the external tool registry.
// Implementations return a nil definition (or an error wrapping the generic
// not-found class) when the id is unknown.
type ToolLookup interface {
	Get(ctx context.Context, toolID string) (*ToolDefinition, error)
}
