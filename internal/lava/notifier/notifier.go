// Package notifier fans out change pings to live list subscribers, keyed by
// entity.
package notifier

import "sync"

// Notifier broadcasts pings to listeners subscribed to a topic. A ping
// carries no data; listeners re-query the store when they receive one.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[string]map[chan struct{}]struct{}
}

// New creates a Notifier.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[string]map[chan struct{}]struct{}),
	}
}

// Subscribe returns a channel receiving pings for topic.
// The caller must Unsubscribe when done.
func (n *Notifier) Subscribe(topic string) chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	set, ok := n.listeners[topic]
	if !ok {
		set = make(map[chan struct{}]struct{})
		n.listeners[topic] = set
	}
	set[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes ch.
func (n *Notifier) Unsubscribe(topic string, ch chan struct{}) {
	n.mu.Lock()
	if set, ok := n.listeners[topic]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(n.listeners, topic)
		}
	}
	n.mu.Unlock()
	close(ch)
}

// Broadcast pings every listener of topic. A listener whose buffer is full
// already has a pending ping and is skipped.
func (n *Notifier) Broadcast(topic string) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	ping(n.listeners[topic])
}

// BroadcastAll pings every listener of every topic.
func (n *Notifier) BroadcastAll() {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, set := range n.listeners {
		ping(set)
	}
}

// Listeners returns the number of listeners of topic.
func (n *Notifier) Listeners(topic string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners[topic])
}

func ping(set map[chan struct{}]struct{}) {
	for ch := range set {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
