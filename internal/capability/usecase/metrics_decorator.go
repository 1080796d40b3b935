package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/warden/internal/capability/domain"
	"github.com/allisson/warden/internal/metrics"
)

// threadUseCaseWithMetrics decorates ThreadUseCase with metrics instrumentation.
type threadUseCaseWithMetrics struct {
	next    ThreadUseCase
	metrics metrics.AuthzMetrics
}

// NewThreadUseCaseWithMetrics wraps a ThreadUseCase with metrics recording.
func NewThreadUseCaseWithMetrics(useCase ThreadUseCase, m metrics.AuthzMetrics) ThreadUseCase {
	return &threadUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// MintThreadToken records metrics for token minting operations.
func (t *threadUseCaseWithMetrics) MintThreadToken(
	ctx context.Context,
	set domain.PermissionSet,
	directiveID uuid.UUID,
	ttl time.Duration,
) (*domain.Thread, error) {
	start := time.Now()
	thread, err := t.next.MintThreadToken(ctx, set, directiveID, ttl)

	status := "success"
	if err != nil {
		status = "error"
	}

	t.metrics.RecordOperation(ctx, "thread_mint", status)
	t.metrics.RecordDuration(ctx, "thread_mint", time.Since(start), status)

	return thread, err
}

// SpawnChildToken records metrics for token attenuation operations.
func (t *threadUseCaseWithMetrics) SpawnChildToken(
	ctx context.Context,
	parentThreadID uuid.UUID,
	childGrants []domain.CapabilityGrant,
	childDirectiveID uuid.UUID,
	ttl time.Duration,
) (*domain.Thread, error) {
	start := time.Now()
	thread, err := t.next.SpawnChildToken(ctx, parentThreadID, childGrants, childDirectiveID, ttl)

	status := "success"
	if err != nil {
		status = "error"
	}

	t.metrics.RecordOperation(ctx, "thread_spawn", status)
	t.metrics.RecordDuration(ctx, "thread_spawn", time.Since(start), status)

	return thread, err
}

// GetThread records metrics for thread lookups.
func (t *threadUseCaseWithMetrics) GetThread(ctx context.Context, threadID uuid.UUID) (*domain.Thread, error) {
	start := time.Now()
	thread, err := t.next.GetThread(ctx, threadID)

	status := "success"
	if err != nil {
		status = "error"
	}

	t.metrics.RecordOperation(ctx, "thread_get", status)
	t.metrics.RecordDuration(ctx, "thread_get", time.Since(start), status)

	return thread, err
}

// CompleteThread records metrics for thread completion.
func (t *threadUseCaseWithMetrics) CompleteThread(ctx context.Context, threadID uuid.UUID) error {
	start := time.Now()
	err := t.next.CompleteThread(ctx, threadID)

	status := "success"
	if err != nil {
		status = "error"
	}

	t.metrics.RecordOperation(ctx, "thread_complete", status)
	t.metrics.RecordDuration(ctx, "thread_complete", time.Since(start), status)

	return err
}

// FailThread records metrics for thread failure transitions.
func (t *threadUseCaseWithMetrics) FailThread(ctx context.Context, threadID uuid.UUID) error {
	start := time.Now()
	err := t.next.FailThread(ctx, threadID)

	status := "success"
	if err != nil {
		status = "error"
	}

	t.metrics.RecordOperation(ctx, "thread_fail", status)
	t.metrics.RecordDuration(ctx, "thread_fail", time.Since(start), status)

	return err
}

// SweepExpired records metrics for expiry sweeps.
func (t *threadUseCaseWithMetrics) SweepExpired(ctx context.Context) int {
	start := time.Now()
	swept := t.next.SweepExpired(ctx)

	t.metrics.RecordOperation(ctx, "thread_sweep", "success")
	t.metrics.RecordDuration(ctx, "thread_sweep", time.Since(start), "success")

	return swept
}
