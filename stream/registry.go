package stream

import (
	"context"
	"errors"
	"sync"
)

// ErrThreadActive reports that a thread already has a live run. Callers
// that want takeover must cancel the prior run first.
var ErrThreadActive = errors.New("stream: thread already has an active run")

// Registry is the process-wide table of in-flight runs, one per thread.
// Register, Cancel, and Remove are serialized against each other so a
// racing invocation and cancellation cannot lose updates.
type Registry struct {
	mu   sync.Mutex
	runs map[string]*runHandle
}

type runHandle struct {
	threadID string
	cancel   context.CancelFunc
}

// NewRegistry creates an empty run registry.
func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*runHandle)}
}

// Register creates a cancellable context for a new run of the thread,
// derived from parent. It fails with ErrThreadActive when the thread
// already has a registered run; the prior handle is never silently
// overwritten.
func (r *Registry) Register(parent context.Context, threadID string) (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[threadID]; ok {
		return nil, ErrThreadActive
	}

	ctx, cancel := context.WithCancel(parent)
	r.runs[threadID] = &runHandle{threadID: threadID, cancel: cancel}
	return ctx, nil
}

// Cancel signals the thread's run, if any, and retires its handle. It is
// idempotent: cancelling an unknown or already-finished thread is a no-op.
func (r *Registry) Cancel(threadID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle, ok := r.runs[threadID]
	if !ok {
		return
	}
	handle.cancel()
	delete(r.runs, threadID)
}

// Remove retires the thread's handle without signalling it. Sessions call
// it on their own termination; the context's resources are released so the
// derived context does not leak.
func (r *Registry) Remove(threadID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle, ok := r.runs[threadID]
	if !ok {
		return
	}
	handle.cancel()
	delete(r.runs, threadID)
}

// Active reports whether the thread currently has a registered run.
func (r *Registry) Active(threadID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.runs[threadID]
	return ok
}

// Len reports the number of registered runs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}
