package reconcile

import (
	"sync"

	"fleetdeck/internal/fleet"
)

// Subscription receives published snapshots. Delivery is latest-value: a
// slow reader skips intermediate snapshots but never sees an older one after
// a newer one.
type Subscription struct {
	loop *Loop
	ch   chan fleet.Snapshot

	mu     sync.Mutex
	closed bool
}

// Subscribe registers an observer. If a snapshot has already been published
// it is delivered immediately. The channel is closed by Close or Stop.
func (l *Loop) Subscribe() *Subscription {
	sub := &Subscription{loop: l, ch: make(chan fleet.Snapshot, 1)}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateTerminated {
		sub.close()
		return sub
	}
	l.subs[sub] = struct{}{}
	if l.sequence > 0 {
		sub.deliver(l.snapshot.Clone())
	}
	return sub
}

// C returns the delivery channel.
func (s *Subscription) C() <-chan fleet.Snapshot {
	return s.ch
}

// Close unregisters the subscription and closes its channel.
func (s *Subscription) Close() {
	if s.loop != nil {
		s.loop.mu.Lock()
		delete(s.loop.subs, s)
		s.loop.mu.Unlock()
	}
	s.close()
}

func (s *Subscription) deliver(snap fleet.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
