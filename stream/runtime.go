package stream

import (
	"context"
	"encoding/json"
)

// SnapshotStream is a pull iterator over the snapshots a run produces.
// Next blocks until the next snapshot is available, the sequence ends
// (io.EOF), the run faults, or ctx is cancelled.
type SnapshotStream interface {
	Next(ctx context.Context) (RawSnapshot, error)
	Close() error
}

// PendingToolCall is the checkpointed tool call a paused run is waiting on.
type PendingToolCall struct {
	ID       string
	ToolCall json.RawMessage
}

// ContinuationKind selects how a paused run proceeds.
type ContinuationKind int

const (
	// ContinueRun resumes from the saved checkpoint unchanged.
	ContinueRun ContinuationKind = iota
	// RefuseToolCall resumes with the pending tool call cancelled so its
	// side effect never executes.
	RefuseToolCall
)

// Continuation encodes the resume intent handed to the runtime.
type Continuation struct {
	Kind       ContinuationKind
	ToolCallID string
	// UpdatedToolCall, when non-nil, overwrites the checkpointed tool call
	// before the run continues.
	UpdatedToolCall json.RawMessage
}

// AgentRuntime is the external collaborator that executes agent runs. It
// owns checkpoints and pause state; this package only mediates.
type AgentRuntime interface {
	// Stream opens a run for the thread and returns its snapshot sequence.
	// The sequence is finite in practice and ends on completion or fault.
	Stream(ctx context.Context, threadID, input string) (SnapshotStream, error)

	// PendingInterrupt reports the tool call a paused thread is waiting
	// on, if any.
	PendingInterrupt(threadID string) (PendingToolCall, bool)

	// Resume continues a paused thread with the given continuation.
	Resume(threadID string, cont Continuation) error
}
