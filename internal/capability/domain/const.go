// Package domain defines the capability-token domain model.
// Implements capability-based authorization for agent tool execution: scoped
// grants, signed tokens, thread ownership, and the checks shared by the
// gateway and the terminal primitives.
package domain

// Well-known capability names. Capability names are dotted strings; the first
// segment is the capability family.
const (
	// FSRead allows reading files under a path scope.
	FSRead = "fs.read"

	// FSWrite allows creating or updating files under a path scope.
	FSWrite = "fs.write"

	// FSDelete allows removing files under a path scope.
	FSDelete = "fs.delete"

	// FSAbsolute allows absolute-path targets outside the project root.
	// System-only: present only on core-category tokens.
	FSAbsolute = "fs.absolute"

	// NetHTTP allows outbound HTTP calls. Scope-free (all-or-nothing).
	NetHTTP = "net.http"

	// ProcSpawn allows spawning subprocesses. Scope-free.
	ProcSpawn = "proc.spawn"

	// ToolExecute allows invoking a specific tool, identified by the "id" scope.
	ToolExecute = "tool.execute"

	// SpawnThread allows spawning child execution threads. System-only.
	SpawnThread = "spawn.thread"

	// RegistryWrite allows mutating the tool registry. System-only.
	RegistryWrite = "registry.write"

	// ExtractorModify allows modifying metadata extractors. System-only.
	ExtractorModify = "extractor.modify"
)

// Scope keys used by capability families.
const (
	// ScopePath is the glob-pattern scope key mandated by the fs family
	// (except fs.absolute, which is a bare flag).
	ScopePath = "path"

	// ScopeID is the tool-identifier scope key mandated by tool.execute.
	ScopeID = "id"
)

// Category is the directive trust tier. It controls whether system-only
// capabilities may be granted at mint time.
type Category string

const (
	// CategoryCore is the trusted tier; system-only capabilities may be granted.
	CategoryCore Category = "core"

	// CategoryUser is the untrusted tier; system-only capabilities are rejected.
	CategoryUser Category = "user"
)

// Valid reports whether the category is a known tier.
func (c Category) Valid() bool {
	return c == CategoryCore || c == CategoryUser
}

// systemOnly is the set of capabilities that only core-category directives may hold.
var systemOnly = map[string]bool{
	FSAbsolute:      true,
	SpawnThread:     true,
	RegistryWrite:   true,
	ExtractorModify: true,
}

// mandatedScopeKeys maps capability names to the scope key their family
// requires. Capabilities absent from this map are scope-free.
var mandatedScopeKeys = map[string]string{
	FSRead:      ScopePath,
	FSWrite:     ScopePath,
	FSDelete:    ScopePath,
	ToolExecute: ScopeID,
}

// IsSystemOnly reports whether the capability may only be granted to
// core-category directives.
func IsSystemOnly(capability string) bool {
	return systemOnly[capability]
}

// MandatedScopeKey returns the scope key the capability's family requires and
// whether one is required at all.
func MandatedScopeKey(capability string) (string, bool) {
	key, ok := mandatedScopeKeys[capability]
	return key, ok
}

// IsPathScoped reports whether the capability carries a path-glob scope that
// the gateway must resolve against the project root.
func IsPathScoped(capability string) bool {
	return mandatedScopeKeys[capability] == ScopePath
}
