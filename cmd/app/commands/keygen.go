package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"gocloud.dev/secrets"

	apperrors "github.com/allisson/warden/internal/errors"
)

// RunKeygen generates a cryptographically secure 32-byte signing key and
// prints it in env-file form. The plaintext key is only suitable for
// development; production deployments should wrap it with RunWrapKey.
func RunKeygen(io IOTuple) error {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return apperrors.Wrap(err, "failed to generate signing key")
	}

	fmt.Fprintf(io.Writer, "SIGNING_KEY=%q\n", base64.StdEncoding.EncodeToString(key))
	return nil
}

// RunWrapKey generates a fresh 32-byte signing key, encrypts it with the KMS
// keeper at keyURI, and prints the env-file settings for KMS mode. With an
// empty keyURI the command fails; for local development use
// "base64key://<32-byte-base64-key>" with the localsecrets provider.
func RunWrapKey(ctx context.Context, io IOTuple, kmsProvider, keyURI string) error {
	if kmsProvider == "" || keyURI == "" {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "--kms-provider and --kms-key-uri are required")
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return apperrors.Wrap(err, "failed to generate signing key")
	}

	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return apperrors.Wrap(err, "failed to open KMS keeper")
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			fmt.Fprintf(io.Writer, "# warning: failed to close KMS keeper: %v\n", closeErr)
		}
	}()

	ciphertext, err := keeper.Encrypt(ctx, key)
	if err != nil {
		return apperrors.Wrap(err, "failed to encrypt signing key")
	}

	fmt.Fprintf(io.Writer, "KMS_PROVIDER=%q\n", kmsProvider)
	fmt.Fprintf(io.Writer, "KMS_KEY_URI=%q\n", keyURI)
	fmt.Fprintf(io.Writer, "KMS_WRAPPED_KEY=%q\n", base64.StdEncoding.EncodeToString(ciphertext))
	return nil
}
