package gateway

import (
	"sync"

	"go.uber.org/zap"

	"github.com/smallnest/agentbridge/internal/logger"
	"github.com/smallnest/agentbridge/stream"
)

// Notifier fans stream events out to the gateway connections subscribed
// to a channel. It implements stream.Transport: events arrive at clients
// as JSON-RPC notifications whose method is the channel name.
type Notifier struct {
	mu    sync.RWMutex
	conns map[string]*Connection
	// channel -> connection ids
	subs map[string]map[string]struct{}
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{
		conns: make(map[string]*Connection),
		subs:  make(map[string]map[string]struct{}),
	}
}

// Track registers a live connection.
func (n *Notifier) Track(conn *Connection) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.conns[conn.ID] = conn
}

// Drop forgets a connection and all its subscriptions.
func (n *Notifier) Drop(connID string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.conns, connID)
	for channel, ids := range n.subs {
		delete(ids, connID)
		if len(ids) == 0 {
			delete(n.subs, channel)
		}
	}
}

// Subscribe adds a connection to a channel's recipients.
func (n *Notifier) Subscribe(channel, connID string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.conns[connID]; !ok {
		return
	}
	if n.subs[channel] == nil {
		n.subs[channel] = make(map[string]struct{})
	}
	n.subs[channel][connID] = struct{}{}
}

// Unsubscribe removes a connection from a channel's recipients.
func (n *Notifier) Unsubscribe(channel, connID string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ids, ok := n.subs[channel]
	if !ok {
		return
	}
	delete(ids, connID)
	if len(ids) == 0 {
		delete(n.subs, channel)
	}
}

// Send delivers one event to every connection subscribed to the channel.
// No live recipient means stream.ErrTransportUnavailable; a write failure
// on one connection is logged and does not fail delivery to the rest.
func (n *Notifier) Send(channel string, ev stream.Event) error {
	n.mu.RLock()
	var recipients []*Connection
	for connID := range n.subs[channel] {
		if conn, ok := n.conns[connID]; ok {
			recipients = append(recipients, conn)
		}
	}
	n.mu.RUnlock()

	if len(recipients) == 0 {
		return stream.ErrTransportUnavailable
	}

	notif := NewNotification(channel, map[string]interface{}{
		"type": ev.Type(),
		"data": ev,
	})
	for _, conn := range recipients {
		if err := conn.SendJSON(notif); err != nil {
			logger.Warn("failed to deliver event notification",
				zap.String("conn_id", conn.ID),
				zap.String("channel", channel),
				zap.Error(err))
		}
	}
	return nil
}
