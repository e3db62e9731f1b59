package capture

import (
	"sync"
	"time"
)

// subscription delivers snapshots to one reader in publish order. push never blocks; a
// forwarding goroutine drains the queue into the reader's channel.
type subscription struct {
	mu      sync.Mutex
	pending []Snapshot
	wake    chan struct{}
	out     chan Snapshot

	stop     chan struct{} // drop anything undelivered and close out
	drain    chan struct{} // close out once pending is delivered
	done     chan struct{} // closed when forward returns
	stopOnce sync.Once
	drainOne sync.Once
}

func newSubscription(first Snapshot) *subscription {
	s := &subscription{
		pending: []Snapshot{first},
		wake:    make(chan struct{}, 1),
		out:     make(chan Snapshot),
		stop:    make(chan struct{}),
		drain:   make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.forward()
	return s
}

func (s *subscription) push(snap Snapshot) {
	s.mu.Lock()
	s.pending = append(s.pending, snap)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) forward() {
	defer close(s.done)
	defer close(s.out)
	draining := false
	for {
		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()

		if len(batch) == 0 {
			if draining {
				return
			}
			select {
			case <-s.wake:
			case <-s.drain:
				draining = true
			case <-s.stop:
				return
			}
			continue
		}

		for _, snap := range batch {
			select {
			case s.out <- snap:
			case <-s.stop:
				return
			}
		}
	}
}

func (s *subscription) cancel() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// finish closes out once pending is delivered. A reader that has not drained it within
// grace loses the rest.
func (s *subscription) finish(grace time.Duration) {
	s.drainOne.Do(func() { close(s.drain) })
	go func() {
		timer := time.NewTimer(grace)
		defer timer.Stop()
		select {
		case <-s.done:
		case <-timer.C:
			s.cancel()
		}
	}()
}
