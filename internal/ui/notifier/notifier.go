// Package notifier provides a broadcast mechanism for SSE updates.
package notifier

import "sync"

// EventKind discriminates what a connected client should re-render.
type EventKind string

const (
	// KindPanel means the panel state changed and the whole panel
	// fragment should be re-rendered from state.
	KindPanel EventKind = "panel"
	// KindWidget carries rendered widget markup for one row.
	KindWidget EventKind = "widget"
)

// Event is one update pushed to connected clients.
type Event struct {
	Kind  EventKind
	RowID string
	HTML  string
}

// Notifier broadcasts events to all subscribed listeners.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan Event]struct{}
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan Event]struct{}),
	}
}

// Subscribe returns a channel that receives events as they are broadcast.
// The caller must call Unsubscribe when done to prevent goroutine leaks.
func (n *Notifier) Subscribe() chan Event {
	ch := make(chan Event, 8)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan Event) {
	n.mu.Lock()
	delete(n.listeners, ch)
	n.mu.Unlock()
	close(ch)
}

// Broadcast sends an event to all listeners.
// Non-blocking: if a listener's channel is full, the event is skipped. A
// skipped panel event is harmless because a later one re-renders the same
// state; widget events are retried by the client's next full render.
func (n *Notifier) Broadcast(ev Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.listeners {
		select {
		case ch <- ev:
		default:
		}
	}
}
