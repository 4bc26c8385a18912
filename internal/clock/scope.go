package clock

import (
	"sync"
	"time"
)

// Scope owns a set of timers tied to one component's lifetime. Closing the
// scope cancels every pending timer, and callbacks never run after Close.
type Scope struct {
	clock  Clock
	mu     sync.Mutex
	next   uint64
	timers map[uint64]Timer
	closed bool
}

// NewScope creates a Scope scheduling on c.
func NewScope(c Clock) *Scope {
	return &Scope{clock: c, timers: make(map[uint64]Timer)}
}

// After runs f once d has elapsed unless the returned cancel function is
// called or the scope is closed first. Cancel is idempotent.
func (s *Scope) After(d time.Duration, f func()) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	s.next++
	id := s.next
	s.timers[id] = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		_, live := s.timers[id]
		delete(s.timers, id)
		closed := s.closed
		s.mu.Unlock()
		if live && !closed {
			f()
		}
	})
	return func() { s.cancel(id) }
}

func (s *Scope) cancel(id uint64) {
	s.mu.Lock()
	t, ok := s.timers[id]
	delete(s.timers, id)
	s.mu.Unlock()
	if ok {
		t.Stop()
	}
}

// Pending reports the number of live timers.
func (s *Scope) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close stops all pending timers. Further After calls are no-ops.
func (s *Scope) Close() {
	s.mu.Lock()
	timers := s.timers
	s.timers = make(map[uint64]Timer)
	s.closed = true
	s.mu.Unlock()
	for _, t := range timers {
		t.Stop()
	}
}

// Now returns the scope clock's current time.
func (s *Scope) Now() time.Time {
	return s.clock.Now()
}
