// Package commands contains CLI command implementations for the application.
package commands

import (
	"encoding/json"
	"io"
	"os"

	"github.com/allisson/warden/internal/capability/domain"
	apperrors "github.com/allisson/warden/internal/errors"
)

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// readTokenFile parses a JSON-serialized capability token from a file.
func readTokenFile(path string) (*domain.CapabilityToken, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to read token file %q", path)
	}
	var token domain.CapabilityToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
	}
	return &token, nil
}

// readPermissionFile parses a JSON permission set from a file.
func readPermissionFile(path string) (domain.PermissionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.PermissionSet{}, apperrors.Wrapf(err, "failed to read permission file %q", path)
	}
	var set domain.PermissionSet
	if err := json.Unmarshal(data, &set); err != nil {
		return domain.PermissionSet{}, apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
	}
	return set, nil
}
