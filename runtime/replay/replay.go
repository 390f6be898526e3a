// Package replay provides a script-backed agent runtime: it plays back
// recorded snapshot sequences per thread and models the pause/resume
// contract in memory. It backs development setups and tests where no live
// agent process is attached.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/smallnest/agentbridge/stream"
)

// Runtime implements stream.AgentRuntime over recorded snapshot scripts.
// A snapshot carrying an "interrupt" field parks the playback until Resume
// is called with a continuation.
type Runtime struct {
	mu            sync.Mutex
	defaultScript []stream.RawSnapshot
	scripts       map[string][]stream.RawSnapshot
	pending       map[string]*pendingRun
	refused       map[string][]string
	checkpoints   map[string]json.RawMessage
}

type pendingRun struct {
	call   stream.PendingToolCall
	resume chan stream.Continuation
}

// New creates a runtime that plays defaultScript for every thread without
// a dedicated script.
func New(defaultScript []stream.RawSnapshot) *Runtime {
	return &Runtime{
		defaultScript: defaultScript,
		scripts:       make(map[string][]stream.RawSnapshot),
		pending:       make(map[string]*pendingRun),
		refused:       make(map[string][]string),
		checkpoints:   make(map[string]json.RawMessage),
	}
}

// SetScript assigns a dedicated snapshot script to a thread.
func (r *Runtime) SetScript(threadID string, snapshots []stream.RawSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scripts[threadID] = snapshots
}

// Stream opens a playback over the thread's script.
func (r *Runtime) Stream(ctx context.Context, threadID, input string) (stream.SnapshotStream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	script, ok := r.scripts[threadID]
	if !ok {
		script = r.defaultScript
	}
	snapshots := make([]stream.RawSnapshot, len(script))
	copy(snapshots, script)

	return &playback{rt: r, threadID: threadID, snapshots: snapshots}, nil
}

// PendingInterrupt reports the tool call a paused thread waits on.
func (r *Runtime) PendingInterrupt(threadID string) (stream.PendingToolCall, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pending[threadID]
	if !ok {
		return stream.PendingToolCall{}, false
	}
	return p.call, true
}

// Resume continues a paused thread. The continuation's semantics are
// applied to the in-memory checkpoint before playback unparks.
func (r *Runtime) Resume(threadID string, cont stream.Continuation) error {
	r.mu.Lock()
	p, ok := r.pending[threadID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("replay: thread %s is not paused", threadID)
	}
	delete(r.pending, threadID)

	if cont.UpdatedToolCall != nil {
		r.checkpoints[threadID] = cont.UpdatedToolCall
	}
	if cont.Kind == stream.RefuseToolCall {
		r.refused[threadID] = append(r.refused[threadID], cont.ToolCallID)
	}
	r.mu.Unlock()

	p.resume <- cont
	return nil
}

// RefusedCalls lists the tool call ids refused on a thread.
func (r *Runtime) RefusedCalls(threadID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.refused[threadID]...)
}

// Checkpoint returns the thread's checkpointed tool call after an edit.
func (r *Runtime) Checkpoint(threadID string) json.RawMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.checkpoints[threadID]
}

// Paused reports whether the thread is parked on an interrupt.
func (r *Runtime) Paused(threadID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[threadID]
	return ok
}

type playback struct {
	rt        *Runtime
	threadID  string
	snapshots []stream.RawSnapshot
	idx       int
}

func (p *playback) Next(ctx context.Context) (stream.RawSnapshot, error) {
	p.rt.mu.Lock()
	parked := p.rt.pending[p.threadID]
	p.rt.mu.Unlock()

	// A prior snapshot raised an interrupt; stay parked until a decision
	// arrives or the run is cancelled.
	if parked != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-parked.resume:
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.idx >= len(p.snapshots) {
		return nil, io.EOF
	}

	snap := p.snapshots[p.idx]
	p.idx++

	if interrupt := gjson.GetBytes(snap, "interrupt"); interrupt.Exists() && interrupt.Type != gjson.Null {
		p.rt.park(p.threadID, interrupt)
	}
	return snap, nil
}

func (p *playback) Close() error { return nil }

// park records pause state for a snapshot that raised an interrupt.
func (r *Runtime) park(threadID string, interrupt gjson.Result) {
	call := stream.PendingToolCall{ID: interrupt.Get("id").String()}
	if call.ID == "" {
		call.ID = uuid.New().String()
	}
	if tc := interrupt.Get("tool_call"); tc.Exists() {
		call.ToolCall = json.RawMessage(tc.Raw)
	} else if interrupt.IsObject() {
		call.ToolCall = json.RawMessage(interrupt.Raw)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[threadID] = &pendingRun{
		call:   call,
		resume: make(chan stream.Continuation, 1),
	}
	r.checkpoints[threadID] = call.ToolCall
}

// LoadScript reads a JSONL snapshot script: one raw snapshot per line,
// blank lines skipped.
func LoadScript(path string) ([]stream.RawSnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()

	var snapshots []stream.RawSnapshot
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			return nil, fmt.Errorf("script line %d is not valid JSON", len(snapshots)+1)
		}
		snap := make(stream.RawSnapshot, len(line))
		copy(snap, line)
		snapshots = append(snapshots, snap)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return snapshots, nil
}
