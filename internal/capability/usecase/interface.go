// Package usecase orchestrates the thread lifecycle: every thread gets its
// token exactly once, at start, and the registry tracks each thread from
// running to a terminal state.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/warden/internal/capability/domain"
)

// ThreadUseCase manages execution threads and their capability tokens. A new
// directive gets a freshly minted token; a thread spawned from a running
// thread gets an attenuated child of its parent's token. Tokens are never
// re-minted or widened after a thread starts.
type ThreadUseCase interface {
	// MintThreadToken starts a new thread for a directive, minting its token
	// from the directive's declared permission set.
	MintThreadToken(
		ctx context.Context,
		set domain.PermissionSet,
		directiveID uuid.UUID,
		ttl time.Duration,
	) (*domain.Thread, error)

	// SpawnChildToken starts a child thread whose token is an attenuation of
	// the parent thread's token. The parent must still be running; grants the
	// parent does not hold are dropped from the child.
	SpawnChildToken(
		ctx context.Context,
		parentThreadID uuid.UUID,
		childGrants []domain.CapabilityGrant,
		childDirectiveID uuid.UUID,
		ttl time.Duration,
	) (*domain.Thread, error)

	// GetThread returns the thread with the given id.
	GetThread(ctx context.Context, threadID uuid.UUID) (*domain.Thread, error)

	// CompleteThread marks a running thread as completed.
	CompleteThread(ctx context.Context, threadID uuid.UUID) error

	// FailThread marks a running thread as failed.
	FailThread(ctx context.Context, threadID uuid.UUID) error

	// SweepExpired transitions running threads whose tokens have expired to
	// the expired state and returns how many were swept.
	SweepExpired(ctx context.Context) int
}
