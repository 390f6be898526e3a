package stream

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/sjson"
)

// ErrNoPendingInterrupt reports a resume call for a thread the runtime
// does not hold paused. It is a usage error, never a silent no-op.
var ErrNoPendingInterrupt = errors.New("stream: no pending interrupt for thread")

// Decision is the consumer's answer to an interrupt. Payload is only
// meaningful for edit decisions, where it overwrites the pending tool
// call's arguments.
type Decision struct {
	Type    DecisionType    `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Resumer drives resumption of a paused run from an external decision. It
// talks to the runtime directly; the run registry tracks only streaming
// sessions, not pause state, which the runtime owns.
type Resumer struct {
	runtime AgentRuntime
}

// NewResumer creates a resumer over the given runtime.
func NewResumer(rt AgentRuntime) *Resumer {
	return &Resumer{runtime: rt}
}

// Resume applies a decision to the thread's pending interrupt:
//
//   - approve: continue from the saved checkpoint unchanged
//   - reject: continue with the pending tool call refused, so its side
//     effect never executes
//   - edit: overwrite the pending tool call's arguments with the decision
//     payload, then continue as approve
func (r *Resumer) Resume(threadID string, decision Decision) error {
	pending, ok := r.runtime.PendingInterrupt(threadID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPendingInterrupt, threadID)
	}

	var cont Continuation
	switch decision.Type {
	case DecisionApprove:
		cont = Continuation{Kind: ContinueRun, ToolCallID: pending.ID}
	case DecisionReject:
		cont = Continuation{Kind: RefuseToolCall, ToolCallID: pending.ID}
	case DecisionEdit:
		patched, err := patchToolCallArgs(pending.ToolCall, decision.Payload)
		if err != nil {
			return fmt.Errorf("apply edit decision: %w", err)
		}
		cont = Continuation{
			Kind:            ContinueRun,
			ToolCallID:      pending.ID,
			UpdatedToolCall: patched,
		}
	default:
		return fmt.Errorf("stream: unknown decision type %q", decision.Type)
	}

	if err := r.runtime.Resume(threadID, cont); err != nil {
		return fmt.Errorf("runtime resume failed: %w", err)
	}
	return nil
}

// patchToolCallArgs overwrites the args of a checkpointed tool call with
// the edit payload.
func patchToolCallArgs(call, payload json.RawMessage) (json.RawMessage, error) {
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	if len(call) == 0 {
		call = json.RawMessage(`{}`)
	}
	patched, err := sjson.SetRawBytes(call, "args", payload)
	if err != nil {
		return nil, err
	}
	return patched, nil
}
