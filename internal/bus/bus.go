// Package bus provides the named-signal event bus the panel subscribes to.
// Signals mirror the host notebook events that drive summary polling.
package bus

import "sync"

// Signal is a named host event.
type Signal string

// Signals emitted by the host integration and the panel itself.
const (
	CellExecuted    Signal = "cell-execution-completed"
	KernelReady     Signal = "kernel-ready"
	ReloadRequested Signal = "extension-reload-requested"
)

// Bus fans signals out to subscribers. Delivery is non-blocking: a
// subscriber with a full channel misses the ping and catches up on the
// next emit, matching the poller's last-write-wins semantics.
type Bus struct {
	mu        sync.RWMutex
	listeners map[chan Signal]map[Signal]struct{}
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		listeners: make(map[chan Signal]map[Signal]struct{}),
	}
}

// Subscribe returns a channel receiving the given signals.
// The caller must call Unsubscribe when done.
func (b *Bus) Subscribe(signals ...Signal) chan Signal {
	ch := make(chan Signal, 1)
	set := make(map[Signal]struct{}, len(signals))
	for _, s := range signals {
		set[s] = struct{}{}
	}
	b.mu.Lock()
	b.listeners[ch] = set
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (b *Bus) Unsubscribe(ch chan Signal) {
	b.mu.Lock()
	delete(b.listeners, ch)
	b.mu.Unlock()
	close(ch)
}

// Emit delivers sig to every subscriber registered for it.
func (b *Bus) Emit(sig Signal) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch, set := range b.listeners {
		if _, ok := set[sig]; !ok {
			continue
		}
		select {
		case ch <- sig:
		default:
			// Channel full, listener catches up on the next emit.
		}
	}
}
