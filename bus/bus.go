// Package bus provides an in-process event transport: per-channel fan-out
// of stream events to subscribed consumers. It is the transport used by
// embedded consumers and by tests; networked consumers go through the
// gateway instead.
package bus

import (
	"sync"

	"github.com/smallnest/agentbridge/stream"
)

// Envelope pairs an event with the channel it was sent on.
type Envelope struct {
	Channel string
	Event   stream.Event
}

// Bus is an in-memory implementation of stream.Transport. A channel may
// have any number of subscribers; sending on a channel with none fails
// with stream.ErrTransportUnavailable.
type Bus struct {
	mu         sync.RWMutex
	bufferSize int
	subs       map[string][]chan Envelope
}

// New creates a bus whose subscriber channels buffer bufferSize events.
func New(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &Bus{
		bufferSize: bufferSize,
		subs:       make(map[string][]chan Envelope),
	}
}

// Subscribe registers a consumer for a channel. The returned cancel
// function unsubscribes and closes the consumer's channel; it is safe to
// call more than once.
func (b *Bus) Subscribe(channel string) (<-chan Envelope, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Envelope, b.bufferSize)
	b.subs[channel] = append(b.subs[channel], ch)

	var once sync.Once
	cancel := func() {
		once.Do(func() { b.unsubscribe(channel, ch) })
	}
	return ch, cancel
}

func (b *Bus) unsubscribe(channel string, ch chan Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[channel]
	for i, sub := range subs {
		if sub == ch {
			b.subs[channel] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}
	if len(b.subs[channel]) == 0 {
		delete(b.subs, channel)
	}
}

// Send delivers an event to every subscriber of the channel. There is no
// backpressure control beyond the subscriber buffers; a consumer that
// cannot keep pace blocks the sending session.
func (b *Bus) Send(channel string, ev stream.Event) error {
	// The read lock is held across delivery so an unsubscribe cannot close
	// a channel mid-send.
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs := b.subs[channel]
	if len(subs) == 0 {
		return stream.ErrTransportUnavailable
	}

	env := Envelope{Channel: channel, Event: ev}
	for _, sub := range subs {
		sub <- env
	}
	return nil
}

// Close unsubscribes every consumer.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for channel, subs := range b.subs {
		for _, sub := range subs {
			close(sub)
		}
		delete(b.subs, channel)
	}
}
