// Package service implements executor-chain resolution over the external tool
// registry, with a concurrent cache.
package service

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/allisson/warden/internal/errors"
	"github.com/allisson/warden/internal/tool/domain"
)

// DefaultMaxDepth bounds executor chains to prevent pathological registries.
const DefaultMaxDepth = 16

// Resolver resolves a tool id to its full executor chain, from the requested
// tool down to the terminal primitive. Chains are immutable for a given
// registry snapshot, so resolutions are cached per tool id; invalidation is
// the registry's responsibility, through Invalidate/InvalidateAll.
type Resolver struct {
	lookup   domain.ToolLookup
	maxDepth int

	// cache holds resolved chains. The lock is held only around map access,
	// never across the recursive resolution; singleflight deduplicates
	// concurrent resolutions of the same id without serializing unrelated ones.
	mu    sync.RWMutex
	cache map[string][]domain.ToolDefinition
	group singleflight.Group
}

// NewResolver creates a Resolver over the given registry lookup. maxDepth <= 0
// selects DefaultMaxDepth.
func NewResolver(lookup domain.ToolLookup, maxDepth int) *Resolver {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Resolver{
		lookup:   lookup,
		maxDepth: maxDepth,
		cache:    make(map[string][]domain.ToolDefinition),
	}
}

// ResolveChain returns the ordered chain [requested tool, ..., primitive].
// Fails with domain.ErrToolNotFound, domain.ErrChainCycle, or
// domain.ErrChainDepthExceeded; structural defects in a definition
// (missing executor, executor on a primitive, unknown type) fail with the
// corresponding domain error.
func (r *Resolver) ResolveChain(ctx context.Context, toolID string) ([]domain.ToolDefinition, error) {
	if toolID == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "empty tool id")
	}

	r.mu.RLock()
	chain, ok := r.cache[toolID]
	r.mu.RUnlock()
	if ok {
		return chain, nil
	}

	result, err, _ := r.group.Do(toolID, func() (any, error) {
		resolved, rerr := r.resolve(ctx, toolID)
		if rerr != nil {
			return nil, rerr
		}
		r.mu.Lock()
		r.cache[toolID] = resolved
		r.mu.Unlock()
		return resolved, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.ToolDefinition), nil
}

// resolve walks the executor chain without touching the cache.
func (r *Resolver) resolve(ctx context.Context, toolID string) ([]domain.ToolDefinition, error) {
	chain := make([]domain.ToolDefinition, 0, 4)
	visited := make(map[string]bool)

	currentID := toolID
	for {
		if visited[currentID] {
			return nil, apperrors.Wrapf(domain.ErrChainCycle, "tool %q repeats in chain", currentID)
		}
		if len(chain) >= r.maxDepth {
			return nil, apperrors.Wrapf(domain.ErrChainDepthExceeded, "chain for %q exceeds %d tools", toolID, r.maxDepth)
		}
		visited[currentID] = true

		definition, err := r.lookup.Get(ctx, currentID)
		if err != nil {
			return nil, apperrors.Wrapf(err, "failed to look up tool %q", currentID)
		}
		if definition == nil {
			return nil, apperrors.Wrapf(domain.ErrToolNotFound, "tool %q", currentID)
		}
		if !definition.ToolType.Valid() {
			return nil, apperrors.Wrapf(domain.ErrUnknownToolType, "tool %q has type %q", currentID, definition.ToolType)
		}

		chain = append(chain, *definition)

		if definition.ToolType == domain.ToolTypePrimitive {
			if definition.ExecutorID != nil {
				return nil, apperrors.Wrapf(domain.ErrExecutorOnPrimitive, "tool %q", currentID)
			}
			return chain, nil
		}
		if definition.ExecutorID == nil || *definition.ExecutorID == "" {
			return nil, apperrors.Wrapf(domain.ErrExecutorMissing, "tool %q", currentID)
		}
		currentID = *definition.ExecutorID
	}
}

// Invalidate drops the cached chain for one tool id.
func (r *Resolver) Invalidate(toolID string) {
	r.mu.Lock()
	delete(r.cache, toolID)
	r.mu.Unlock()
}

// InvalidateAll drops every cached chain.
func (r *Resolver) InvalidateAll() {
	r.mu.Lock()
	r.cache = make(map[string][]domain.ToolDefinition)
	r.mu.Unlock()
}
