package domain

import (
	"sort"
	"strings"
)

// CapabilityGrant is a single named permission, optionally narrowed by a scope.
// A grant whose capability family mandates a scope and lacks it is invalid and
// is rejected at mint time, never silently widened.
type CapabilityGrant struct {
	Capability string            `json:"capability"`
	Scope      map[string]string `json:"scope,omitempty"`
}

// Validate checks the grant against its capability family's scope requirement.
func (g CapabilityGrant) Validate() error {
	if key, required := MandatedScopeKey(g.Capability); required {
		if g.Scope == nil || g.Scope[key] == "" {
			return &MissingScopeError{Capability: g.Capability, ScopeKey: key}
		}
	}
	return nil
}

// Path returns the path-glob scope value, empty when the grant is not path-scoped.
func (g CapabilityGrant) Path() string {
	if g.Scope == nil {
		return ""
	}
	return g.Scope[ScopePath]
}

// Clone returns a deep copy of the grant.
func (g CapabilityGrant) Clone() CapabilityGrant {
	out := CapabilityGrant{Capability: g.Capability}
	if g.Scope != nil {
		out.Scope = make(map[string]string, len(g.Scope))
		for k, v := range g.Scope {
			out.Scope[k] = v
		}
	}
	return out
}

// String renders the grant for denial messages, e.g. `fs.write{path:"src/**"}`.
func (g CapabilityGrant) String() string {
	if len(g.Scope) == 0 {
		return g.Capability
	}
	keys := make([]string, 0, len(g.Scope))
	for k := range g.Scope {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(g.Capability)
	b.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(k)
		b.WriteString(`:"`)
		b.WriteString(g.Scope[k])
		b.WriteString(`"`)
	}
	b.WriteString("}")
	return b.String()
}

// GrantNames returns the capability names of the grants, preserving order.
func GrantNames(grants []CapabilityGrant) []string {
	names := make([]string, len(grants))
	for i, g := range grants {
		names[i] = g.Capability
	}
	return names
}
