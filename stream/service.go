package stream

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/smallnest/agentbridge/internal/logger"
)

// Options configure a Service.
type Options struct {
	// ChannelPrefix names event channels; "agent-stream:" by default.
	ChannelPrefix string
	// Workdir is the workspace base path reported when a snapshot carries
	// none; the process working directory by default.
	Workdir string
}

// Service is the boundary of the mediation core. Invoke opens a streaming
// session for a thread, Resume answers a pending interrupt, Cancel signals
// a running session. Safe for concurrent use.
type Service struct {
	runtime   AgentRuntime
	transport Transport
	registry  *Registry
	resumer   *Resumer

	prefix  string
	workdir string

	wg sync.WaitGroup
}

// NewService wires a mediation core over the given runtime and transport.
func NewService(rt AgentRuntime, tr Transport, optFns ...func(o *Options)) *Service {
	opts := Options{
		ChannelPrefix: DefaultChannelPrefix,
	}
	if wd, err := os.Getwd(); err == nil {
		opts.Workdir = wd
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Service{
		runtime:   rt,
		transport: tr,
		registry:  NewRegistry(),
		resumer:   NewResumer(rt),
		prefix:    opts.ChannelPrefix,
		workdir:   opts.Workdir,
	}
}

// Invoke opens a session for the thread and streams its events
// asynchronously on the thread's channel until a terminal event. A thread
// with a live run is rejected with ErrThreadActive; callers that want
// takeover cancel first.
func (s *Service) Invoke(ctx context.Context, threadID, message string) error {
	runCtx, err := s.registry.Register(ctx, threadID)
	if err != nil {
		return err
	}

	channel := ChannelFor(s.prefix, threadID)
	sess := newSession(threadID, channel, s.workdir, s.runtime, s.transport, s.registry)

	logger.Info("session started",
		zap.String("thread_id", threadID),
		zap.String("channel", channel))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sess.run(runCtx, message)
	}()
	return nil
}

// Resume answers the thread's pending interrupt. The result reports
// success or failure of issuing the resumption command; further events, if
// any, stream via a new or continuing Invoke channel.
func (s *Service) Resume(threadID string, decision Decision) error {
	return s.resumer.Resume(threadID, decision)
}

// Cancel signals cancellation of the thread's run. Idempotent for unknown
// or already-finished threads.
func (s *Service) Cancel(threadID string) {
	s.registry.Cancel(threadID)
}

// Active reports whether the thread has a live run.
func (s *Service) Active(threadID string) bool {
	return s.registry.Active(threadID)
}

// Wait blocks until every in-flight session has terminated. Meant for
// shutdown; callers cancel threads first.
func (s *Service) Wait() {
	s.wg.Wait()
}
