package domain

import (
	"fmt"
	"strings"

	apperrors "github.com/allisson/warden/internal/errors"
)

// Token and grant errors.
var (
	// ErrSignatureInvalid indicates a token signature that does not verify.
	ErrSignatureInvalid = apperrors.Wrap(apperrors.ErrUnauthorized, "token signature invalid")

	// ErrTokenExpired indicates a token past its expiry.
	ErrTokenExpired = apperrors.Wrap(apperrors.ErrUnauthorized, "token expired")

	// ErrThreadNotFound indicates a thread with the specified ID was not found.
	ErrThreadNotFound = apperrors.Wrap(apperrors.ErrNotFound, "thread not found")

	// ErrThreadNotRunning indicates an operation on a thread that already terminated.
	ErrThreadNotRunning = apperrors.Wrap(apperrors.ErrConflict, "thread is not running")
)

// MissingScopeError indicates a grant whose capability family mandates a scope
// key that the grant lacks. Always fatal to the mint.
type MissingScopeError struct {
	Capability string
	ScopeKey   string
}

func (e *MissingScopeError) Error() string {
	return fmt.Sprintf("grant %q requires scope key %q", e.Capability, e.ScopeKey)
}

// Unwrap maps the error to the generic invalid-input class.
func (e *MissingScopeError) Unwrap() error { return apperrors.ErrInvalidInput }

// SystemCapabilityError indicates a system-only capability requested by a
// non-core directive. Always fatal to the mint.
type SystemCapabilityError struct {
	Capability string
	Category   Category
}

func (e *SystemCapabilityError) Error() string {
	return fmt.Sprintf("capability %q is system-only and cannot be granted to a %q directive",
		e.Capability, e.Category)
}

// Unwrap maps the error to the generic forbidden class.
func (e *SystemCapabilityError) Unwrap() error { return apperrors.ErrForbidden }

// MissingCapabilityError indicates a tool call requiring a capability the
// token does not hold. The granted set is included so the directive author can
// widen permissions deliberately instead of guessing.
type MissingCapabilityError struct {
	Capability string
	Granted    []string
}

func (e *MissingCapabilityError) Error() string {
	if len(e.Granted) == 0 {
		return fmt.Sprintf("missing capability %q (token holds no grants)", e.Capability)
	}
	return fmt.Sprintf("missing capability %q (token holds: %s)",
		e.Capability, strings.Join(e.Granted, ", "))
}

// Unwrap maps the error to the generic forbidden class.
func (e *MissingCapabilityError) Unwrap() error { return apperrors.ErrForbidden }

// PathScopeError indicates a path-scoped call whose target path matched none
// of the granted patterns.
type PathScopeError struct {
	Capability string
	Path       string
	Patterns   []string
}

func (e *PathScopeError) Error() string {
	return fmt.Sprintf("path %q is not in scope for %q (granted patterns: %s)",
		e.Path, e.Capability, strings.Join(e.Patterns, ", "))
}

// Unwrap maps the error to the generic forbidden class.
func (e *PathScopeError) Unwrap() error { return apperrors.ErrForbidden }

// ScopeMismatchError indicates a scoped call (e.g. tool.execute) whose target
// matched none of the granted scope values.
type ScopeMismatchError struct {
	Capability string
	ScopeKey   string
	Target     string
	Granted    []string
}

func (e *ScopeMismatchError) Error() string {
	return fmt.Sprintf("%s %q is not in scope for %q (granted: %s)",
		e.ScopeKey, e.Target, e.Capability, strings.Join(e.Granted, ", "))
}

// Unwrap maps the error to the generic forbidden class.
func (e *ScopeMismatchError) Unwrap() error { return apperrors.ErrForbidden }
