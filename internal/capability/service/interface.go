// Package service implements capability-token services: canonical
// serialization, signing, minting, and attenuation.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/warden/internal/capability/domain"
)

// Signer signs and verifies canonical token payloads. Key material is
// supplied externally through a KeySource; implementations never persist keys.
type Signer interface {
	// Sign returns the signature over the payload.
	Sign(payload []byte) ([]byte, error)

	// Verify checks the signature over the payload. Returns
	// domain.ErrSignatureInvalid on mismatch. Comparison is constant-time.
	Verify(payload []byte, signature []byte) error
}

// KeySource supplies the HMAC signing key. Implementations may call out to a
// remote KMS; callers bound the call with the context so a token mint never
// hangs on key material.
type KeySource interface {
	SigningKey(ctx context.Context) ([]byte, error)
}

// Minter converts a directive's declared permission set into a signed
// capability token for a new thread.
type Minter interface {
	Mint(
		ctx context.Context,
		set domain.PermissionSet,
		threadID uuid.UUID,
		directiveID uuid.UUID,
		ttl time.Duration,
	) (*domain.CapabilityToken, error)
}

// Attenuator computes a child token from a parent token and a child
// directive's grants when a new thread is spawned. Grants the parent lacks are
// silently dropped, never escalated.
type Attenuator interface {
	Attenuate(
		ctx context.Context,
		parent *domain.CapabilityToken,
		childGrants []domain.CapabilityGrant,
		childDirectiveID uuid.UUID,
		newThreadID uuid.UUID,
		ttl time.Duration,
	) (*domain.CapabilityToken, error)
}
