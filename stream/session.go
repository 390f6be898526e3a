package stream

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/smallnest/agentbridge/internal/logger"
)

// session owns one run's lifecycle: it pulls snapshots from the runtime,
// applies the extractors in order, filters messages through the dedup
// tracker, pushes events to the transport, and terminates with exactly one
// terminal event. It runs on its own goroutine; all state is goroutine
// local except the registry.
type session struct {
	threadID  string
	channel   string
	workdir   string
	runtime   AgentRuntime
	transport Transport
	registry  *Registry
	dedup     *dedupTracker
	log       *zap.Logger

	terminated bool
	aborted    bool
}

func newSession(threadID, channel, workdir string, rt AgentRuntime, tr Transport, reg *Registry) *session {
	return &session{
		threadID:  threadID,
		channel:   channel,
		workdir:   workdir,
		runtime:   rt,
		transport: tr,
		registry:  reg,
		dedup:     newDedupTracker(),
		log:       logger.With(zap.String("thread_id", threadID)),
	}
}

// run drives the session to completion. The registry entry is cleared on
// every termination path: normal, cancelled, or faulted.
func (s *session) run(ctx context.Context, input string) {
	defer s.registry.Remove(s.threadID)
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("session panic", zap.Any("panic", r))
			s.terminate(ErrorEvent{Message: fmt.Sprintf("internal fault: %v", r)})
		}
	}()

	snapshots, err := s.runtime.Stream(ctx, s.threadID, input)
	if err != nil {
		s.terminate(ErrorEvent{Message: err.Error()})
		return
	}
	defer snapshots.Close()

	for {
		// Cancellation is cooperative: it prevents starting the next pull,
		// never aborts extraction already in progress.
		if ctx.Err() != nil {
			s.terminate(DoneEvent{Reason: DoneCancelled})
			return
		}

		snap, err := snapshots.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			s.terminate(DoneEvent{Reason: DoneCompleted})
			return
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			s.terminate(DoneEvent{Reason: DoneCancelled})
			return
		case err != nil:
			s.log.Warn("snapshot pull failed", zap.Error(err))
			s.terminate(ErrorEvent{Message: err.Error()})
			return
		}

		// A cancel that landed while the pull was suspended retires the
		// session without processing the snapshot it returned.
		if ctx.Err() != nil {
			s.terminate(DoneEvent{Reason: DoneCancelled})
			return
		}

		if !s.process(snap) {
			return
		}
	}
}

// process runs the five extractors in their fixed order and pushes every
// produced event immediately, no batching. It returns false when the
// transport has no recipient left and the session must abort.
func (s *session) process(snap RawSnapshot) bool {
	events := extractMessages(snap, s.dedup)
	events = append(events, extractTodos(snap)...)
	events = append(events, extractWorkspace(snap, s.workdir)...)
	events = append(events, extractSubagents(snap)...)
	events = append(events, extractInterrupt(snap)...)

	for _, ev := range events {
		if !s.push(ev) {
			return false
		}
	}
	return true
}

// push delivers one event. A missing recipient aborts the session early;
// any other delivery failure is logged and does not fault the session.
func (s *session) push(ev Event) bool {
	err := s.transport.Send(s.channel, ev)
	if err == nil {
		return true
	}
	if errors.Is(err, ErrTransportUnavailable) {
		s.log.Warn("no recipient for channel, aborting session",
			zap.String("channel", s.channel))
		s.aborted = true
		return false
	}
	s.log.Warn("event delivery failed",
		zap.String("event_type", string(ev.Type())),
		zap.Error(err))
	return true
}

// terminate pushes the terminal event. A session pushes at most one, and
// none at all when it aborted on a dead transport.
func (s *session) terminate(ev Event) {
	if s.terminated || s.aborted {
		return
	}
	s.terminated = true
	s.push(ev)
}
