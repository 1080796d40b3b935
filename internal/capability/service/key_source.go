package service

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"gocloud.dev/secrets"

	apperrors "github.com/allisson/warden/internal/errors"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// staticKeySource serves a fixed in-memory key. Every call returns a fresh
// copy so callers can zero their copy without destroying the source.
type staticKeySource struct {
	key []byte
}

// NewStaticKeySource creates a KeySource from a base64-encoded signing key.
func NewStaticKeySource(encodedKey string) (KeySource, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "signing key is not valid base64")
	}
	if len(key) < 32 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "signing key must be at least 32 bytes")
	}
	return &staticKeySource{key: key}, nil
}

func (s *staticKeySource) SigningKey(_ context.Context) ([]byte, error) {
	return append([]byte(nil), s.key...), nil
}

// kmsKeySource unwraps a KMS-encrypted signing key through a gocloud keeper.
// The unwrap result is cached for the process lifetime; the KMS round trip is
// the one blocking boundary in the token pipeline and is bounded by timeout.
type kmsKeySource struct {
	keyURI     string
	wrappedKey []byte
	timeout    time.Duration

	mu     sync.Mutex
	cached []byte
}

// NewKMSKeySource creates a KeySource that decrypts the base64-encoded,
// KMS-wrapped signing key through the keeper at keyURI.
// Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
func NewKMSKeySource(keyURI, wrappedKey string, timeout time.Duration) (KeySource, error) {
	wrapped, err := base64.StdEncoding.DecodeString(wrappedKey)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "wrapped signing key is not valid base64")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &kmsKeySource{keyURI: keyURI, wrappedKey: wrapped, timeout: timeout}, nil
}

func (k *kmsKeySource) SigningKey(ctx context.Context) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.cached != nil {
		return append([]byte(nil), k.cached...), nil
	}

	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	keeper, err := secrets.OpenKeeper(ctx, k.keyURI)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open KMS keeper")
	}
	defer func() {
		_ = keeper.Close()
	}()

	key, err := keeper.Decrypt(ctx, k.wrappedKey)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to unwrap signing key")
	}

	k.cached = key
	return append([]byte(nil), key...), nil
}
