package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/warden/internal/errors"
	"github.com/allisson/warden/internal/testutil"
	"github.com/allisson/warden/internal/tool/domain"
)

func chainRegistry() *testutil.Registry {
	return testutil.NewRegistry(
		domain.ToolDefinition{
			ToolID:               "mcp.github.create_issue",
			ToolType:             domain.ToolTypeMCPTool,
			ExecutorID:           testutil.Executor("mcp.github"),
			RequiredCapabilities: []string{"net.http"},
		},
		domain.ToolDefinition{
			ToolID:     "mcp.github",
			ToolType:   domain.ToolTypeMCPServer,
			ExecutorID: testutil.Executor("runtime.node"),
		},
		domain.ToolDefinition{
			ToolID:     "runtime.node",
			ToolType:   domain.ToolTypeRuntime,
			ExecutorID: testutil.Executor(domain.PrimitiveSubprocess),
		},
		domain.ToolDefinition{
			ToolID:   domain.PrimitiveSubprocess,
			ToolType: domain.ToolTypePrimitive,
		},
	)
}

func TestResolver_ResolveChain(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_FullChain", func(t *testing.T) {
		resolver := NewResolver(chainRegistry(), 0)

		chain, err := resolver.ResolveChain(ctx, "mcp.github.create_issue")
		require.NoError(t, err)
		require.Len(t, chain, 4)
		assert.Equal(t, "mcp.github.create_issue", chain[0].ToolID)
		assert.Equal(t, "mcp.github", chain[1].ToolID)
		assert.Equal(t, "runtime.node", chain[2].ToolID)
		assert.Equal(t, domain.PrimitiveSubprocess, chain[3].ToolID)
	})

	t.Run("Success_PrimitiveIsItsOwnChain", func(t *testing.T) {
		resolver := NewResolver(chainRegistry(), 0)

		chain, err := resolver.ResolveChain(ctx, domain.PrimitiveSubprocess)
		require.NoError(t, err)
		require.Len(t, chain, 1)
		assert.Equal(t, domain.ToolTypePrimitive, chain[0].ToolType)
	})

	t.Run("Success_SecondResolutionHitsCache", func(t *testing.T) {
		registry := chainRegistry()
		resolver := NewResolver(registry, 0)

		_, err := resolver.ResolveChain(ctx, "mcp.github.create_issue")
		require.NoError(t, err)
		lookups := registry.GetCalls()

		_, err = resolver.ResolveChain(ctx, "mcp.github.create_issue")
		require.NoError(t, err)
		assert.Equal(t, lookups, registry.GetCalls())
	})

	t.Run("Success_InvalidateForcesReResolution", func(t *testing.T) {
		registry := chainRegistry()
		resolver := NewResolver(registry, 0)

		_, err := resolver.ResolveChain(ctx, "mcp.github.create_issue")
		require.NoError(t, err)
		lookups := registry.GetCalls()

		resolver.Invalidate("mcp.github.create_issue")
		_, err = resolver.ResolveChain(ctx, "mcp.github.create_issue")
		require.NoError(t, err)
		assert.Greater(t, registry.GetCalls(), lookups)
	})

	t.Run("Success_ConcurrentResolutions", func(t *testing.T) {
		resolver := NewResolver(chainRegistry(), 0)

		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				chain, err := resolver.ResolveChain(ctx, "mcp.github.create_issue")
				assert.NoError(t, err)
				assert.Len(t, chain, 4)
			}()
		}
		wg.Wait()
	})

	t.Run("Fail_EmptyToolID", func(t *testing.T) {
		resolver := NewResolver(chainRegistry(), 0)

		_, err := resolver.ResolveChain(ctx, "")
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})

	t.Run("Fail_ToolNotFound", func(t *testing.T) {
		resolver := NewResolver(chainRegistry(), 0)

		_, err := resolver.ResolveChain(ctx, "no.such.tool")
		assert.ErrorIs(t, err, domain.ErrToolNotFound)
	})

	t.Run("Fail_DanglingExecutor", func(t *testing.T) {
		registry := chainRegistry()
		registry.Add(domain.ToolDefinition{
			ToolID:     "script.broken",
			ToolType:   domain.ToolTypeScript,
			ExecutorID: testutil.Executor("runtime.missing"),
		})
		resolver := NewResolver(registry, 0)

		_, err := resolver.ResolveChain(ctx, "script.broken")
		assert.ErrorIs(t, err, domain.ErrToolNotFound)
	})

	t.Run("Fail_Cycle", func(t *testing.T) {
		registry := testutil.NewRegistry(
			domain.ToolDefinition{
				ToolID:     "a",
				ToolType:   domain.ToolTypeScript,
				ExecutorID: testutil.Executor("b"),
			},
			domain.ToolDefinition{
				ToolID:     "b",
				ToolType:   domain.ToolTypeRuntime,
				ExecutorID: testutil.Executor("a"),
			},
		)
		resolver := NewResolver(registry, 0)

		_, err := resolver.ResolveChain(ctx, "a")
		assert.ErrorIs(t, err, domain.ErrChainCycle)
	})

	t.Run("Fail_DepthExceeded", func(t *testing.T) {
		registry := testutil.NewRegistry()
		for i := range 5 {
			id := string(rune('a' + i))
			next := string(rune('a' + i + 1))
			registry.Add(domain.ToolDefinition{
				ToolID:     id,
				ToolType:   domain.ToolTypeRuntime,
				ExecutorID: testutil.Executor(next),
			})
		}
		resolver := NewResolver(registry, 3)

		_, err := resolver.ResolveChain(ctx, "a")
		assert.ErrorIs(t, err, domain.ErrChainDepthExceeded)
	})

	t.Run("Fail_NonPrimitiveWithoutExecutor", func(t *testing.T) {
		registry := testutil.NewRegistry(domain.ToolDefinition{
			ToolID:   "runtime.orphan",
			ToolType: domain.ToolTypeRuntime,
		})
		resolver := NewResolver(registry, 0)

		_, err := resolver.ResolveChain(ctx, "runtime.orphan")
		assert.ErrorIs(t, err, domain.ErrExecutorMissing)
	})

	t.Run("Fail_PrimitiveWithExecutor", func(t *testing.T) {
		registry := testutil.NewRegistry(domain.ToolDefinition{
			ToolID:     "weird.primitive",
			ToolType:   domain.ToolTypePrimitive,
			ExecutorID: testutil.Executor("elsewhere"),
		})
		resolver := NewResolver(registry, 0)

		_, err := resolver.ResolveChain(ctx, "weird.primitive")
		assert.ErrorIs(t, err, domain.ErrExecutorOnPrimitive)
	})

	t.Run("Fail_UnknownToolType", func(t *testing.T) {
		registry := testutil.NewRegistry(domain.ToolDefinition{
			ToolID:   "mystery",
			ToolType: domain.ToolType("hologram"),
		})
		resolver := NewResolver(registry, 0)

		_, err := resolver.ResolveChain(ctx, "mystery")
		assert.ErrorIs(t, err, domain.ErrUnknownToolType)
	})
}
