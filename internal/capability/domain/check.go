package domain

import (
	"strings"
	"time"

	apperrors "github.com/allisson/warden/internal/errors"
	"github.com/allisson/warden/internal/pathscope"
)

// CallTarget carries the scoped targets of a tool call: the tool being
// invoked and, for path-addressed calls, the filesystem target.
type CallTarget struct {
	ToolID string
	Path   string
}

// CheckCall verifies that the token holds every required capability and that
// the call's targets fall inside the granted scopes. It is the single
// capability-check used by the gateway and re-used by terminal primitives
// before they act (defense in depth against a gateway bypass).
//
// Absolute path targets are only resolvable when the token holds fs.absolute;
// fs.absolute is system-only, so only core-category tokens can carry it.
func CheckCall(token *CapabilityToken, required []string, target CallTarget, projectRoot string, now time.Time) error {
	if token.Expired(now) {
		return ErrTokenExpired
	}

	for _, capability := range required {
		grants := token.Grants(capability)
		if len(grants) == 0 {
			return &MissingCapabilityError{Capability: capability, Granted: token.GrantedNames()}
		}

		if IsPathScoped(capability) {
			if err := checkPathScope(token, capability, grants, target.Path, projectRoot); err != nil {
				return err
			}
		}

		if capability == ToolExecute {
			if err := checkToolScope(capability, grants, target.ToolID); err != nil {
				return err
			}
		}
	}

	return nil
}

func checkPathScope(token *CapabilityToken, capability string, grants []CapabilityGrant, targetPath, projectRoot string) error {
	if targetPath == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidInput, "capability %q requires a target path", capability)
	}

	resolved, err := pathscope.Resolve(projectRoot, targetPath, token.Holds(FSAbsolute))
	if err != nil {
		return err
	}

	patterns := make([]string, 0, len(grants))
	for _, g := range grants {
		if p := g.Path(); p != "" {
			patterns = append(patterns, p)
		}
	}
	if !pathscope.Match(resolved, patterns) {
		return &PathScopeError{Capability: capability, Path: resolved, Patterns: patterns}
	}
	return nil
}

func checkToolScope(capability string, grants []CapabilityGrant, toolID string) error {
	if toolID == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidInput, "capability %q requires a tool id", capability)
	}

	granted := make([]string, 0, len(grants))
	for _, g := range grants {
		id := g.Scope[ScopeID]
		granted = append(granted, id)
		if matchToolID(id, toolID) {
			return nil
		}
	}
	return &ScopeMismatchError{Capability: capability, ScopeKey: ScopeID, Target: toolID, Granted: granted}
}

// matchToolID matches a granted tool-id scope against the requested tool id.
// Supports exact ids, "*" (any tool), and trailing-wildcard prefixes like
// "shell.*".
func matchToolID(pattern, toolID string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(toolID, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == toolID
}
