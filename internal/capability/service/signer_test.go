package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/warden/internal/capability/domain"
)

func newTestSigner(t *testing.T) Signer {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	keySource, err := NewStaticKeySource(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	return NewHMACSigner(keySource)
}

func newSignedToken(t *testing.T, signer Signer, caps []domain.CapabilityGrant) *domain.CapabilityToken {
	t.Helper()
	now := time.Now().UTC()
	parentID := uuid.Must(uuid.NewV7())
	token := &domain.CapabilityToken{
		ID:            uuid.Must(uuid.NewV7()),
		Caps:          caps,
		Audience:      "warden",
		IssuedAt:      now,
		ExpiresAt:     now.Add(time.Hour),
		DirectiveID:   uuid.Must(uuid.NewV7()),
		ThreadID:      uuid.Must(uuid.NewV7()),
		ParentTokenID: &parentID,
	}
	require.NoError(t, SignToken(signer, token))
	return token
}

func TestHMACSigner_RoundTrip(t *testing.T) {
	signer := newTestSigner(t)

	payload := []byte("canonical payload bytes")
	sig, err := signer.Sign(payload)
	require.NoError(t, err)
	assert.Len(t, sig, 32)

	assert.NoError(t, signer.Verify(payload, sig))
}

func TestHMACSigner_SigningKeySurvivesRepeatedUse(t *testing.T) {
	// The signer zeroes its key copies after every call; the source must keep
	// serving the same key.
	signer := newTestSigner(t)

	payload := []byte("payload")
	sig1, err := signer.Sign(payload)
	require.NoError(t, err)
	sig2, err := signer.Sign(payload)
	require.NoError(t, err)

	assert.Equal(t, sig1, sig2)
	assert.NoError(t, signer.Verify(payload, sig1))
}

func TestHMACSigner_FlippedByteFailsVerification(t *testing.T) {
	signer := newTestSigner(t)

	payload := []byte("canonical payload bytes")
	sig, err := signer.Sign(payload)
	require.NoError(t, err)

	for i := range sig {
		tampered := append([]byte(nil), sig...)
		tampered[i] ^= 0x01
		assert.ErrorIs(t, signer.Verify(payload, tampered), domain.ErrSignatureInvalid)
	}

	tamperedPayload := append([]byte(nil), payload...)
	tamperedPayload[0] ^= 0x01
	assert.ErrorIs(t, signer.Verify(tamperedPayload, sig), domain.ErrSignatureInvalid)
}

func TestVerifyToken_FieldMutationInvalidates(t *testing.T) {
	signer := newTestSigner(t)
	token := newSignedToken(t, signer, []domain.CapabilityGrant{
		{Capability: domain.FSRead, Scope: map[string]string{domain.ScopePath: "src/**"}},
	})

	require.NoError(t, VerifyToken(signer, token))

	t.Run("mutated expiry", func(t *testing.T) {
		mutated := token.Clone()
		mutated.ExpiresAt = mutated.ExpiresAt.Add(time.Hour)
		assert.ErrorIs(t, VerifyToken(signer, mutated), domain.ErrSignatureInvalid)
	})

	t.Run("widened scope", func(t *testing.T) {
		mutated := token.Clone()
		mutated.Caps[0].Scope[domain.ScopePath] = "**/*"
		assert.ErrorIs(t, VerifyToken(signer, mutated), domain.ErrSignatureInvalid)
	})

	t.Run("added grant", func(t *testing.T) {
		mutated := token.Clone()
		mutated.Caps = append(mutated.Caps, domain.CapabilityGrant{Capability: domain.NetHTTP})
		assert.ErrorIs(t, VerifyToken(signer, mutated), domain.ErrSignatureInvalid)
	})

	t.Run("cleared parent id", func(t *testing.T) {
		mutated := token.Clone()
		mutated.ParentTokenID = nil
		assert.ErrorIs(t, VerifyToken(signer, mutated), domain.ErrSignatureInvalid)
	})
}

func TestCanonicalPayload_Deterministic(t *testing.T) {
	signer := newTestSigner(t)
	token := newSignedToken(t, signer, []domain.CapabilityGrant{
		{Capability: domain.ToolExecute, Scope: map[string]string{"id": "shell.run", "mode": "safe"}},
	})

	// Scope maps iterate in random order; the canonical form must not.
	first := CanonicalPayload(token)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, CanonicalPayload(token))
	}

	// A clone shares no backing arrays but must encode identically.
	assert.Equal(t, first, CanonicalPayload(token.Clone()))
}

func TestNewStaticKeySource(t *testing.T) {
	t.Run("rejects invalid base64", func(t *testing.T) {
		_, err := NewStaticKeySource("not-base64!!!")
		assert.Error(t, err)
	})

	t.Run("rejects short keys", func(t *testing.T) {
		_, err := NewStaticKeySource(base64.StdEncoding.EncodeToString([]byte("short")))
		assert.Error(t, err)
	})

	t.Run("returns fresh copies", func(t *testing.T) {
		key := make([]byte, 32)
		_, err := rand.Read(key)
		require.NoError(t, err)

		source, err := NewStaticKeySource(base64.StdEncoding.EncodeToString(key))
		require.NoError(t, err)

		first, err := source.SigningKey(context.Background())
		require.NoError(t, err)
		zero(first)

		second, err := source.SigningKey(context.Background())
		require.NoError(t, err)
		assert.Equal(t, key, second)
	})
}
