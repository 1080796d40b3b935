package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/warden/internal/capability/domain"
	apperrors "github.com/allisson/warden/internal/errors"
	appvalidation "github.com/allisson/warden/internal/validation"
)

type attenuator struct {
	signer Signer
	now    func() time.Time
}

// NewAttenuator creates an Attenuator that derives strictly-narrower child
// tokens from a parent token.
func NewAttenuator(signer Signer) Attenuator {
	return &attenuator{signer: signer, now: func() time.Time { return time.Now().UTC() }}
}

// NewAttenuatorWithClock creates an Attenuator with an injected clock for tests.
func NewAttenuatorWithClock(signer Signer, now func() time.Time) Attenuator {
	return &attenuator{signer: signer, now: now}
}

// Attenuate computes a child token for a new thread. A requested grant is
// kept only if the parent holds the same capability with a scope equal to or
// containing the child's; everything else is silently dropped — the denial
// surfaces later as an ordinary missing-capability failure the first time the
// dropped capability is actually needed. The parent token is untouched and
// keeps executing under its own grants.
//
// The child's expiry is clamped to the parent's, so a child can never outlive
// its parent's grant window.
func (a *attenuator) Attenuate(
	_ context.Context,
	parent *domain.CapabilityToken,
	childGrants []domain.CapabilityGrant,
	childDirectiveID uuid.UUID,
	newThreadID uuid.UUID,
	ttl time.Duration,
) (*domain.CapabilityToken, error) {
	now := a.now()

	// The parent must be live and authentic; attenuating a tampered or
	// expired token would launder it into a fresh signature.
	if err := VerifyToken(a.signer, parent); err != nil {
		return nil, err
	}
	if parent.Expired(now) {
		return nil, domain.ErrTokenExpired
	}
	if ttl <= 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "ttl must be positive")
	}

	kept := make([]domain.CapabilityGrant, 0, len(childGrants))
	for _, child := range childGrants {
		if err := a.validateChildGrant(child, parent); err != nil {
			return nil, err
		}
		for _, parentGrant := range parent.Grants(child.Capability) {
			if scopeContains(parentGrant, child) {
				kept = append(kept, child.Clone())
				break
			}
		}
	}

	expiresAt := now.Add(ttl)
	if expiresAt.After(parent.ExpiresAt) {
		expiresAt = parent.ExpiresAt
	}

	parentID := parent.ID
	token := &domain.CapabilityToken{
		ID:            uuid.Must(uuid.NewV7()),
		Caps:          kept,
		Audience:      parent.Audience,
		IssuedAt:      now,
		ExpiresAt:     expiresAt,
		DirectiveID:   childDirectiveID,
		ThreadID:      newThreadID,
		ParentTokenID: &parentID,
	}

	if err := SignToken(a.signer, token); err != nil {
		return nil, apperrors.Wrap(err, "failed to sign attenuated token")
	}
	return token, nil
}

// validateChildGrant applies the same grant validation the minter applies, so
// an invalid grant can never survive attenuation either. Path patterns reject
// ".." and empty segments in particular: containment compares patterns
// textually while matching cleans them, so an uncleaned "src/../**" would
// pass containment against "src/**" and then match the whole root.
func (a *attenuator) validateChildGrant(child domain.CapabilityGrant, parent *domain.CapabilityToken) error {
	if err := (appvalidation.CapabilityName{}).Validate(child.Capability); err != nil {
		return appvalidation.WrapValidationError(err)
	}
	if err := child.Validate(); err != nil {
		return err
	}
	if path := child.Path(); path != "" {
		rule := appvalidation.GlobPattern{AllowAbsolute: parent.Holds(domain.FSAbsolute)}
		if err := rule.Validate(path); err != nil {
			return appvalidation.WrapValidationError(err)
		}
	}
	return nil
}

// scopeContains reports whether the parent grant's scope is equal to or a
// superset of the child's requested scope.
//
// Path scopes use a conservative containment rule: the child pattern must be
// identical to the parent's, or textually contained under the parent
// pattern's root when the parent is a prefix-style glob ("root/**" or the
// universal "**"/"**/*"). Overlapping-but-not-contained patterns are dropped.
// All non-path scope values must match exactly.
func scopeContains(parent, child domain.CapabilityGrant) bool {
	// Scope keys the parent constrains must all be satisfied by the child;
	// a child missing a key the parent constrains is asking for more.
	for key, parentValue := range parent.Scope {
		childValue := ""
		if child.Scope != nil {
			childValue = child.Scope[key]
		}

		if key == domain.ScopePath {
			if !patternContains(parentValue, childValue) {
				return false
			}
			continue
		}
		if parentValue != childValue {
			return false
		}
	}

	// Extra scope keys on the child only narrow further; they are fine.
	return true
}

// patternContains conservatively approximates "child's matched-path-set is a
// subset of parent's matched-path-set".
func patternContains(parentPattern, childPattern string) bool {
	if childPattern == "" {
		// An unscoped child request against a scoped parent grant would widen.
		return false
	}
	if parentPattern == childPattern {
		return true
	}
	if parentPattern == "**" || parentPattern == "**/*" {
		// Universal parent patterns contain any relative child pattern.
		return !strings.HasPrefix(childPattern, "/")
	}
	if root, ok := strings.CutSuffix(parentPattern, "/**"); ok {
		return childPattern == root || strings.HasPrefix(childPattern, root+"/")
	}
	return false
}
