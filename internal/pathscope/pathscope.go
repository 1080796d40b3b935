// Package pathscope resolves requested filesystem paths against a project root
// and matches them against granted glob patterns. It is the single containment
// check used by the gateway and re-used by terminal primitives for defense in
// depth: a path that escapes the project root is rejected before any grant
// pattern is consulted.
package pathscope

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	apperrors "github.com/allisson/warden/internal/errors"
)

// Path resolution errors.
var (
	// ErrEmptyPath indicates an empty requested path.
	ErrEmptyPath = apperrors.Wrap(apperrors.ErrInvalidInput, "empty path")

	// ErrAbsolutePath indicates an absolute path was requested without the
	// fs.absolute capability.
	ErrAbsolutePath = apperrors.Wrap(apperrors.ErrForbidden, "absolute path not permitted")

	// ErrOutsideRoot indicates the requested path resolves outside the project root.
	ErrOutsideRoot = apperrors.Wrap(apperrors.ErrForbidden, "path resolves outside the project root")
)

// Resolve normalizes requestedPath against projectRoot and returns the
// slash-separated path that grant patterns are matched against.
//
// Relative paths are joined to projectRoot, lexically normalized, and rejected
// when any ".." segment escapes the root. Symlinks under the root are resolved
// before the containment check, so a symlink pointing outside the root also
// fails. Absolute paths are rejected unless allowAbsolute is set (the gateway
// sets it only when the token carries fs.absolute); an allowed absolute path is
// returned in cleaned absolute form and is matched against absolute patterns.
func Resolve(projectRoot, requestedPath string, allowAbsolute bool) (string, error) {
	if requestedPath == "" {
		return "", ErrEmptyPath
	}

	if filepath.IsAbs(requestedPath) {
		if !allowAbsolute {
			return "", ErrAbsolutePath
		}
		resolved, err := resolveSymlinks(filepath.Clean(requestedPath))
		if err != nil {
			return "", apperrors.Wrap(err, "failed to resolve path")
		}
		return filepath.ToSlash(resolved), nil
	}

	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to resolve project root")
	}
	if realRoot, rerr := resolveSymlinks(root); rerr == nil {
		root = realRoot
	}

	// Lexical containment first: Clean collapses "a/b/../../c" style segments,
	// and anything still starting with ".." escapes the root.
	cleaned := filepath.Clean(filepath.FromSlash(requestedPath))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}

	full := filepath.Join(root, cleaned)
	resolved, err := resolveSymlinks(full)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to resolve path")
	}
	if !contains(root, resolved) {
		return "", ErrOutsideRoot
	}

	rel, err := filepath.Rel(root, resolved)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to relativize path")
	}
	return filepath.ToSlash(rel), nil
}

// resolveSymlinks resolves symlinks on the deepest existing ancestor of p and
// re-joins the non-existing remainder. Paths that do not exist yet (a write
// target, for example) still get their existing parents resolved.
func resolveSymlinks(p string) (string, error) {
	remainder := ""
	current := p
	for {
		if _, err := os.Lstat(current); err == nil {
			break
		}
		parent := filepath.Dir(current)
		if parent == current {
			// Nothing on this path exists; fall back to the lexical form.
			return p, nil
		}
		if remainder == "" {
			remainder = filepath.Base(current)
		} else {
			remainder = filepath.Join(filepath.Base(current), remainder)
		}
		current = parent
	}

	resolved, err := filepath.EvalSymlinks(current)
	if err != nil {
		return "", err
	}
	if remainder == "" {
		return resolved, nil
	}
	return filepath.Join(resolved, remainder), nil
}

// contains reports whether p equals root or lives under it.
func contains(root, p string) bool {
	if p == root {
		return true
	}
	return strings.HasPrefix(p, root+string(filepath.Separator))
}

// Match reports whether the resolved path matches any of the granted glob
// patterns. Patterns use "/"-separated segments where "*" matches a single
// segment (with path.Match semantics inside a segment) and "**" matches any
// number of segments, including none. An empty pattern list never matches.
func Match(resolvedPath string, patterns []string) bool {
	if resolvedPath == "" || len(patterns) == 0 {
		return false
	}

	pathSegments := splitSegments(resolvedPath)
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		// Absolute patterns only match absolute paths and vice versa.
		if strings.HasPrefix(pattern, "/") != strings.HasPrefix(resolvedPath, "/") {
			continue
		}
		if matchSegments(splitSegments(pattern), pathSegments) {
			return true
		}
	}
	return false
}

func splitSegments(p string) []string {
	return strings.Split(strings.Trim(path.Clean(p), "/"), "/")
}

// matchSegments matches pattern segments against path segments. "**" is
// matched greedily by trying every possible number of consumed segments.
func matchSegments(pattern, segments []string) bool {
	if len(pattern) == 0 {
		return len(segments) == 0
	}

	if pattern[0] == "**" {
		// "**" as the final segment matches any remainder, including none.
		if len(pattern) == 1 {
			return true
		}
		for skip := 0; skip <= len(segments); skip++ {
			if matchSegments(pattern[1:], segments[skip:]) {
				return true
			}
		}
		return false
	}

	if len(segments) == 0 {
		return false
	}

	matched, err := path.Match(pattern[0], segments[0])
	if err != nil || !matched {
		return false
	}
	return matchSegments(pattern[1:], segments[1:])
}
