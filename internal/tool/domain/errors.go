package domain

import (
	apperrors "github.com/allisson/warden/internal/errors"
)

// Executor-chain resolution errors. A cycle or a missing tool is a
// registry-data bug, not a transient condition; callers never retry.
var (
	// ErrToolNotFound indicates an unresolvable tool id in the chain.
	ErrToolNotFound = apperrors.Wrap(apperrors.ErrNotFound, "tool not found")

	// ErrChainCycle indicates a tool id repeating within one resolution.
	ErrChainCycle = apperrors.Wrap(apperrors.ErrInvalidInput, "executor chain contains a cycle")

	// ErrChainDepthExceeded indicates a chain longer than the configured bound.
	ErrChainDepthExceeded = apperrors.Wrap(apperrors.ErrInvalidInput, "executor chain depth exceeded")

	// ErrExecutorMissing indicates a non-primitive definition without an executor.
	ErrExecutorMissing = apperrors.Wrap(apperrors.ErrInvalidInput, "non-primitive tool has no executor")

	// ErrExecutorOnPrimitive indicates a primitive definition with an executor.
	ErrExecutorOnPrimitive = apperrors.Wrap(apperrors.ErrInvalidInput, "primitive tool must not have an executor")

	// ErrUnknownToolType indicates a tool type outside the closed enum.
	ErrUnknownToolType = apperrors.Wrap(apperrors.ErrInvalidInput, "unknown tool type")
)
