package kv

import "sync"

// subscription queues changes without blocking writers and pumps them to
// the subscriber in write order.
type subscription struct {
	prefix string

	mu    sync.Mutex
	queue []Change

	wake     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	out      chan Change
}

func newSubscription(prefix string) *subscription {
	return &subscription{
		prefix: prefix,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		out:    make(chan Change),
	}
}

func (s *subscription) push(c Change) {
	s.mu.Lock()
	s.queue = append(s.queue, c)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *subscription) run() {
	defer close(s.out)
	for {
		s.mu.Lock()
		pending := s.queue
		s.queue = nil
		s.mu.Unlock()
		for _, c := range pending {
			select {
			case s.out <- c:
			case <-s.done:
				return
			}
		}
		select {
		case <-s.wake:
		case <-s.done:
			return
		}
	}
}
