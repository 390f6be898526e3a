package stream

import (
	"errors"
	"fmt"
)

// ErrTransportUnavailable reports that a channel has no live recipient.
// A session that hits it aborts early without emitting further events;
// there is nowhere to send them.
var ErrTransportUnavailable = errors.New("transport: no recipient for channel")

// Transport delivers events to whoever listens on a channel. Delivery is
// fire-and-forget: the session never waits for an acknowledgement.
type Transport interface {
	Send(channel string, ev Event) error
}

// DefaultChannelPrefix is prepended to a thread id to name its event
// channel.
const DefaultChannelPrefix = "agent-stream:"

// ChannelFor names the event channel of a thread.
func ChannelFor(prefix, threadID string) string {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return fmt.Sprintf("%s%s", prefix, threadID)
}
