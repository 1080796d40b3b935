package domain

import (
	"time"

	"github.com/google/uuid"
)

// CapabilityToken is the signed, scoped permission token owned by one
// execution thread. Immutable once minted: attenuation produces a new token
// for a new thread and never edits the parent's. The signature covers the
// canonical serialization of every other field, so any mutation invalidates
// verification.
type CapabilityToken struct {
	ID            uuid.UUID         `json:"id"`
	Caps          []CapabilityGrant `json:"caps"` // order preserved from the directive
	Audience      string            `json:"audience"`
	IssuedAt      time.Time         `json:"issued_at"`
	ExpiresAt     time.Time         `json:"expires_at"`
	DirectiveID   uuid.UUID         `json:"directive_id"`
	ThreadID      uuid.UUID         `json:"thread_id"`
	ParentTokenID *uuid.UUID        `json:"parent_token_id,omitempty"` // audit traceability only, never used for re-validation
	Signature     []byte            `json:"signature"`
}

// Expired reports whether the token is past its expiry at the given instant.
// ExpiresAt is exclusive: a token expiring exactly now is expired.
func (t *CapabilityToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Grants returns every grant of the named capability, preserving order. A
// token may hold multiple grants of one capability with different scopes.
func (t *CapabilityToken) Grants(capability string) []CapabilityGrant {
	var out []CapabilityGrant
	for _, g := range t.Caps {
		if g.Capability == capability {
			out = append(out, g)
		}
	}
	return out
}

// Holds reports whether the token holds at least one grant of the capability.
func (t *CapabilityToken) Holds(capability string) bool {
	for _, g := range t.Caps {
		if g.Capability == capability {
			return true
		}
	}
	return false
}

// GrantedNames returns the capability names held by the token, preserving
// order and keeping duplicates for multi-scope grants.
func (t *CapabilityToken) GrantedNames() []string {
	return GrantNames(t.Caps)
}

// Clone returns a deep copy of the token.
func (t *CapabilityToken) Clone() *CapabilityToken {
	out := &CapabilityToken{
		ID:          t.ID,
		Audience:    t.Audience,
		IssuedAt:    t.IssuedAt,
		ExpiresAt:   t.ExpiresAt,
		DirectiveID: t.DirectiveID,
		ThreadID:    t.ThreadID,
	}
	if t.ParentTokenID != nil {
		parent := *t.ParentTokenID
		out.ParentTokenID = &parent
	}
	if t.Caps != nil {
		out.Caps = make([]CapabilityGrant, len(t.Caps))
		for i, g := range t.Caps {
			out.Caps[i] = g.Clone()
		}
	}
	if t.Signature != nil {
		out.Signature = append([]byte(nil), t.Signature...)
	}
	return out
}
