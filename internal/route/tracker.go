package route

import "sync"

type subscriber struct {
	id    int
	enter func(path string)
	leave func(from, to string)
}

// Tracker is the single source of the current path. Every surface that
// decides connection ownership subscribes to the same Tracker.
type Tracker struct {
	// navMu is held for a whole navigation so hooks see paths in the order
	// they became current.
	navMu sync.Mutex

	mu     sync.Mutex
	path   string
	nextID int
	subs   []subscriber
}

// NewTracker creates a Tracker positioned on initial.
func NewTracker(initial string) *Tracker {
	return &Tracker{path: initial}
}

// Path returns the current path.
func (t *Tracker) Path() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.path
}

// Navigate moves to path. Every leave hook runs first, then every path
// subscriber, each in registration order. Navigating to the current path
// notifies again, like a page reload. Concurrent calls are delivered one
// after the other, so the last path subscribers see is Path().
//
// Hooks must not call Navigate.
func (t *Tracker) Navigate(path string) {
	t.navMu.Lock()
	defer t.navMu.Unlock()

	t.mu.Lock()
	from := t.path
	t.path = path
	subs := append([]subscriber(nil), t.subs...)
	t.mu.Unlock()

	for _, s := range subs {
		if s.leave != nil {
			s.leave(from, path)
		}
	}
	for _, s := range subs {
		if s.enter != nil {
			s.enter(path)
		}
	}
}

// Subscribe registers fn for path changes. The returned function unsubscribes.
func (t *Tracker) Subscribe(fn func(path string)) (unsubscribe func()) {
	return t.add(subscriber{enter: fn})
}

// OnLeave registers fn to run before subscribers on every navigation.
func (t *Tracker) OnLeave(fn func(from, to string)) (unsubscribe func()) {
	return t.add(subscriber{leave: fn})
}

func (t *Tracker) add(s subscriber) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	s.id = t.nextID
	t.subs = append(t.subs, s)
	id := s.id
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, s := range t.subs {
			if s.id == id {
				t.subs = append(t.subs[:i], t.subs[i+1:]...)
				return
			}
		}
	}
}
