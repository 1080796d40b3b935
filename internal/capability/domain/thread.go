package domain

import (
	"time"

	"github.com/google/uuid"
)

// ThreadStatus is the lifecycle state of an execution thread.
type ThreadStatus string

const (
	// ThreadRunning indicates the thread is executing and its token is live.
	ThreadRunning ThreadStatus = "running"

	// ThreadCompleted indicates the thread finished successfully.
	ThreadCompleted ThreadStatus = "completed"

	// ThreadFailed indicates the thread terminated with an error.
	ThreadFailed ThreadStatus = "failed"

	// ThreadExpired indicates the thread's token expired before completion.
	ThreadExpired ThreadStatus = "expired"
)

// Terminal reports whether the status is a final state.
func (s ThreadStatus) Terminal() bool {
	return s == ThreadCompleted || s == ThreadFailed || s == ThreadExpired
}

// Thread is one directive execution. It owns its CapabilityToken exclusively:
// the token is minted when the thread starts (fresh mint for a new directive,
// attenuation when spawned from a running thread) and never mutated after.
type Thread struct {
	ThreadID       uuid.UUID
	ParentThreadID *uuid.UUID
	Token          *CapabilityToken
	DirectiveID    uuid.UUID
	Status         ThreadStatus
	CreatedAt      time.Time
}

// Clone returns a deep copy of the thread.
func (t *Thread) Clone() *Thread {
	clone := *t
	if t.ParentThreadID != nil {
		parentID := *t.ParentThreadID
		clone.ParentThreadID = &parentID
	}
	if t.Token != nil {
		clone.Token = t.Token.Clone()
	}
	return &clone
}
