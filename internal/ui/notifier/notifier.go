// Package notifier provides a broadcast mechanism for pushing update
// pings to SSE subscribers.
package notifier

import "sync"

// Notifier fans out update pings to all subscribers. Subscribers receive
// an empty struct when the underlying data changed and should re-query.
type Notifier struct {
	mu          sync.RWMutex
	subscribers map[chan struct{}]struct{}
}

// New creates a Notifier.
func New() *Notifier {
	return &Notifier{subscribers: make(map[chan struct{}]struct{})}
}

// Subscribe registers a new subscriber channel. Callers must Unsubscribe
// when done so the channel is released.
func (n *Notifier) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.subscribers[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (n *Notifier) Unsubscribe(ch chan struct{}) {
	n.mu.Lock()
	delete(n.subscribers, ch)
	n.mu.Unlock()
	close(ch)
}

// Broadcast pings every subscriber without blocking; a subscriber with a
// full buffer catches up on its next receive.
func (n *Notifier) Broadcast() {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for ch := range n.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
