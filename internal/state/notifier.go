package state

import (
	"sync"

	"fleetwatch/internal/metrics"
)

// Notifier fans a coalesced "something changed" signal out to subscribers.
// A subscriber that has not consumed its pending signal is not signalled again.
type Notifier struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[chan struct{}]struct{})}
}

// Subscribe returns a signal channel and a cancel func that releases it.
func (n *Notifier) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, ch)
			n.mu.Unlock()
		})
	}
}

func (n *Notifier) Notify() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
			metrics.RenderCoalesced.Add(1)
		}
	}
}
