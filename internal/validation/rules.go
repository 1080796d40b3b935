// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"
	"strings"
	"time"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/warden/internal/errors"
)

var (
	// capabilityNameRegex matches dotted capability names like "fs.write" or
	// "spawn.thread". At least two lowercase segments separated by dots.
	capabilityNameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)+$`)

	// identifierRegex matches resource/action identifiers like "filesystem" or "write".
	identifierRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// CapabilityName validates that a value is a well-formed dotted capability name.
type CapabilityName struct{}

// Validate checks the capability name grammar (e.g. "fs.write", "tool.execute").
func (c CapabilityName) Validate(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_capability_name", "capability name must be a string")
	}
	if !capabilityNameRegex.MatchString(s) {
		return validation.NewError(
			"validation_capability_name",
			"capability name must be lowercase dotted segments (e.g. fs.write)",
		)
	}
	return nil
}

// Identifier validates resource and action identifiers in permission entries.
type Identifier struct{}

// Validate checks that the value is a lowercase identifier.
func (i Identifier) Validate(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_identifier", "identifier must be a string")
	}
	if !identifierRegex.MatchString(s) {
		return validation.NewError(
			"validation_identifier",
			"identifier must be lowercase letters, digits, '_' or '-'",
		)
	}
	return nil
}

// GlobPattern validates path glob patterns used in capability scopes.
// Patterns use "/"-separated segments with "*" and "**" wildcards.
type GlobPattern struct {
	// AllowAbsolute permits patterns rooted at "/". Only scopes granted
	// alongside fs.absolute should set this.
	AllowAbsolute bool
}

// Validate checks that the pattern is non-empty, contains no parent-directory
// segments, and has no empty path segments.
func (g GlobPattern) Validate(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_glob_pattern", "glob pattern must be a string")
	}
	if s == "" {
		return validation.NewError("validation_glob_pattern", "glob pattern must not be empty")
	}
	if strings.HasPrefix(s, "/") && !g.AllowAbsolute {
		return validation.NewError("validation_glob_pattern", "glob pattern must be relative")
	}
	for _, segment := range strings.Split(strings.TrimPrefix(s, "/"), "/") {
		if segment == "" {
			return validation.NewError("validation_glob_pattern", "glob pattern has an empty segment")
		}
		if segment == ".." {
			return validation.NewError(
				"validation_glob_pattern",
				"glob pattern must not contain parent-directory segments",
			)
		}
	}
	return nil
}

// TTLRange validates a token lifetime against configured bounds.
type TTLRange struct {
	Max time.Duration
}

// Validate checks that the value is a positive duration not exceeding Max.
func (r TTLRange) Validate(value interface{}) error {
	d, ok := value.(time.Duration)
	if !ok {
		return validation.NewError("validation_ttl", "ttl must be a duration")
	}
	if d <= 0 {
		return validation.NewError("validation_ttl", "ttl must be positive")
	}
	if r.Max > 0 && d > r.Max {
		return validation.NewError("validation_ttl", "ttl exceeds the configured maximum")
	}
	return nil
}
