package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/warden/internal/capability/domain"
	"github.com/allisson/warden/internal/capability/service"
)

// threadUseCase implements ThreadUseCase over an in-memory thread registry.
type threadUseCase struct {
	minter     service.Minter
	attenuator service.Attenuator
	now        func() time.Time

	mu      sync.RWMutex
	threads map[uuid.UUID]*domain.Thread
}

// NewThreadUseCase creates a ThreadUseCase backed by an in-memory registry.
func NewThreadUseCase(minter service.Minter, attenuator service.Attenuator) ThreadUseCase {
	return NewThreadUseCaseWithClock(minter, attenuator, func() time.Time { return time.Now().UTC() })
}

// NewThreadUseCaseWithClock creates a ThreadUseCase with an injected clock for tests.
func NewThreadUseCaseWithClock(minter service.Minter, attenuator service.Attenuator, now func() time.Time) ThreadUseCase {
	return &threadUseCase{
		minter:     minter,
		attenuator: attenuator,
		now:        now,
		threads:    make(map[uuid.UUID]*domain.Thread),
	}
}

// MintThreadToken starts a new thread for a directive.
func (t *threadUseCase) MintThreadToken(
	ctx context.Context,
	set domain.PermissionSet,
	directiveID uuid.UUID,
	ttl time.Duration,
) (*domain.Thread, error) {
	threadID := uuid.Must(uuid.NewV7())
	token, err := t.minter.Mint(ctx, set, threadID, directiveID, ttl)
	if err != nil {
		return nil, err
	}

	thread := &domain.Thread{
		ThreadID:    threadID,
		Token:       token,
		DirectiveID: directiveID,
		Status:      domain.ThreadRunning,
		CreatedAt:   t.now(),
	}

	t.mu.Lock()
	t.threads[threadID] = thread
	t.mu.Unlock()

	return thread.Clone(), nil
}

// SpawnChildToken starts a child thread with an attenuated token.
func (t *threadUseCase) SpawnChildToken(
	ctx context.Context,
	parentThreadID uuid.UUID,
	childGrants []domain.CapabilityGrant,
	childDirectiveID uuid.UUID,
	ttl time.Duration,
) (*domain.Thread, error) {
	t.mu.RLock()
	parent, ok := t.threads[parentThreadID]
	t.mu.RUnlock()
	if !ok {
		return nil, domain.ErrThreadNotFound
	}
	if parent.Status != domain.ThreadRunning {
		return nil, domain.ErrThreadNotRunning
	}

	threadID := uuid.Must(uuid.NewV7())
	token, err := t.attenuator.Attenuate(ctx, parent.Token, childGrants, childDirectiveID, threadID, ttl)
	if err != nil {
		return nil, err
	}

	parentID := parentThreadID
	thread := &domain.Thread{
		ThreadID:       threadID,
		ParentThreadID: &parentID,
		Token:          token,
		DirectiveID:    childDirectiveID,
		Status:         domain.ThreadRunning,
		CreatedAt:      t.now(),
	}

	t.mu.Lock()
	t.threads[threadID] = thread
	t.mu.Unlock()

	return thread.Clone(), nil
}

// GetThread returns a copy of the thread with the given id.
func (t *threadUseCase) GetThread(_ context.Context, threadID uuid.UUID) (*domain.Thread, error) {
	t.mu.RLock()
	thread, ok := t.threads[threadID]
	t.mu.RUnlock()
	if !ok {
		return nil, domain.ErrThreadNotFound
	}
	return thread.Clone(), nil
}

// CompleteThread marks a running thread as completed.
func (t *threadUseCase) CompleteThread(_ context.Context, threadID uuid.UUID) error {
	return t.transition(threadID, domain.ThreadCompleted)
}

// FailThread marks a running thread as failed.
func (t *threadUseCase) FailThread(_ context.Context, threadID uuid.UUID) error {
	return t.transition(threadID, domain.ThreadFailed)
}

func (t *threadUseCase) transition(threadID uuid.UUID, status domain.ThreadStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	thread, ok := t.threads[threadID]
	if !ok {
		return domain.ErrThreadNotFound
	}
	if thread.Status != domain.ThreadRunning {
		return domain.ErrThreadNotRunning
	}
	thread.Status = status
	return nil
}

// SweepExpired marks running threads with expired tokens as expired.
func (t *threadUseCase) SweepExpired(_ context.Context) int {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	swept := 0
	for _, thread := range t.threads {
		if thread.Status == domain.ThreadRunning && thread.Token.Expired(now) {
			thread.Status = domain.ThreadExpired
			swept++
		}
	}
	return swept
}
