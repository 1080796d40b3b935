package domain

// PermissionEntry is one parsed permission declaration from a workflow
// document: a resource, an action on it, and optional attributes (e.g. a path
// glob). Parsing the workflow-document format is the directive provider's
// concern; this kernel consumes the parsed entries.
type PermissionEntry struct {
	Resource string            `json:"resource"`
	Action   string            `json:"action"`
	Attrs    map[string]string `json:"attrs,omitempty"`
}

// PermissionSet is the ordered permission list of one directive plus its
// trust category. It is the minter's sole structured input.
type PermissionSet struct {
	Entries  []PermissionEntry `json:"entries"`
	Category Category          `json:"category"`
}
