package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/allisson/warden/internal/capability/domain"
	apperrors "github.com/allisson/warden/internal/errors"
)

// signingKeyInfo versions the HKDF derivation so the algorithm can change
// without reusing key streams.
const signingKeyInfo = "capability-token-signing-v1"

type hmacSigner struct {
	keySource KeySource
}

// NewHMACSigner creates a Signer using HKDF-SHA256 for key derivation and
// HMAC-SHA256 for signature generation. The root key comes from the KeySource
// on every call; derived keys are zeroed after use.
func NewHMACSigner(keySource KeySource) Signer {
	return &hmacSigner{keySource: keySource}
}

// deriveSigningKey uses HKDF-SHA256 to derive a 32-byte signing key from the
// root key. Separates token-signing key usage from any other use of the same
// root material.
func (h *hmacSigner) deriveSigningKey(rootKey []byte) ([]byte, error) {
	kdf := hkdf.New(sha256.New, rootKey, nil, []byte(signingKeyInfo))

	signingKey := make([]byte, 32)
	if _, err := io.ReadFull(kdf, signingKey); err != nil {
		return nil, err
	}
	return signingKey, nil
}

func (h *hmacSigner) mac(payload []byte) ([]byte, error) {
	rootKey, err := h.keySource.SigningKey(context.Background())
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load signing key")
	}
	defer zero(rootKey)

	signingKey, err := h.deriveSigningKey(rootKey)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to derive signing key")
	}
	defer zero(signingKey)

	mac := hmac.New(sha256.New, signingKey)
	mac.Write(payload)
	return mac.Sum(nil), nil
}

// Sign generates the HMAC-SHA256 signature for the payload.
func (h *hmacSigner) Sign(payload []byte) ([]byte, error) {
	return h.mac(payload)
}

// Verify checks the payload signature. Returns domain.ErrSignatureInvalid if
// tampered or invalid. Uses hmac.Equal for constant-time comparison.
func (h *hmacSigner) Verify(payload []byte, signature []byte) error {
	expected, err := h.mac(payload)
	if err != nil {
		return apperrors.Wrap(err, "failed to compute expected signature")
	}
	if !hmac.Equal(signature, expected) {
		return domain.ErrSignatureInvalid
	}
	return nil
}

// SignToken computes and attaches the signature over the token's canonical
// payload. Called once at mint/attenuation time; the token must not change after.
func SignToken(signer Signer, token *domain.CapabilityToken) error {
	sig, err := signer.Sign(CanonicalPayload(token))
	if err != nil {
		return err
	}
	token.Signature = sig
	return nil
}

// VerifyToken re-derives the canonical payload and checks the token's
// signature, so any field mutation after mint fails verification.
func VerifyToken(signer Signer, token *domain.CapabilityToken) error {
	return signer.Verify(CanonicalPayload(token), token.Signature)
}

// zero overwrites sensitive data in memory with zeros.
// Prevents key material from lingering in memory after use.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
