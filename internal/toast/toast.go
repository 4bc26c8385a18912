// Package toast is the application-wide ephemeral feedback channel. A
// Provider owns the visible list; components receive the Publisher handle
// returned by Mount. Code outside a provider uses Fallback.
package toast

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gestionclinique/clinic-intray/internal/clock"
)

// Kind is the toast severity.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// ParseKind maps a string to a Kind, defaulting to info.
func ParseKind(s string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindSuccess:
		return KindSuccess
	case KindError:
		return KindError
	case KindWarning:
		return KindWarning
	default:
		return KindInfo
	}
}

const (
	// DefaultDuration applies when Publish gets a non-positive duration and
	// the provider has no WithDefaultDuration.
	DefaultDuration = 5 * time.Second
	// ExitDuration is how long a dismissed toast stays in its leaving state.
	ExitDuration = 300 * time.Millisecond
)

// Toast is one visible entry.
type Toast struct {
	ID        string
	Message   string
	Kind      Kind
	Duration  time.Duration
	CreatedAt time.Time
	// Leaving is set once the toast is dismissed and waiting for removal.
	Leaving bool
}

// Publisher shows a toast. Publishing never fails.
type Publisher interface {
	Publish(message string, kind Kind, duration time.Duration)
}

// Provider holds the visible toasts of one mounted console.
type Provider struct {
	clock    clock.Clock
	fallback Publisher
	duration time.Duration

	mu         sync.Mutex
	scope      *clock.Scope
	generation uint64
	mounted    bool
	counter    uint64
	toasts     []Toast
	expiry     map[string]func()
	nextSub    int
	subs       map[int]func()
}

// Option configures a Provider.
type Option func(*Provider)

// WithClock sets the clock driving expiry.
func WithClock(c clock.Clock) Option {
	return func(p *Provider) { p.clock = c }
}

// WithFallback sets where publishes go once the provider is unmounted.
func WithFallback(f Publisher) Option {
	return func(p *Provider) { p.fallback = f }
}

// WithDefaultDuration sets the lifetime of toasts published without one.
func WithDefaultDuration(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.duration = d
		}
	}
}

// NewProvider creates an unmounted provider.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		clock:    clock.Real(),
		fallback: Fallback,
		duration: DefaultDuration,
		expiry:   make(map[string]func()),
		subs:     make(map[int]func()),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Mount activates the provider and returns the publisher handle to pass to
// components. A handle from an earlier mount falls back once it is stale.
func (p *Provider) Mount() Publisher {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.scope != nil {
		p.scope.Close()
	}
	p.scope = clock.NewScope(p.clock)
	p.generation++
	p.mounted = true
	return &handle{provider: p, generation: p.generation}
}

// Unmount detaches every handle, cancels pending timers and clears the list.
func (p *Provider) Unmount() {
	p.mu.Lock()
	if !p.mounted {
		p.mu.Unlock()
		return
	}
	p.mounted = false
	p.scope.Close()
	p.toasts = nil
	p.expiry = make(map[string]func())
	p.mu.Unlock()
	p.notify()
}

// Toasts returns the visible toasts in publish order.
func (p *Provider) Toasts() []Toast {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Toast(nil), p.toasts...)
}

// Subscribe calls fn after each change of the visible list.
func (p *Provider) Subscribe(fn func()) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextSub++
	id := p.nextSub
	p.subs[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

// publish reports false when the handle's mount is no longer live.
func (p *Provider) publish(generation uint64, message string, kind Kind, duration time.Duration) bool {
	p.mu.Lock()
	if duration <= 0 {
		duration = p.duration
	}
	if !p.mounted || p.generation != generation {
		p.mu.Unlock()
		return false
	}
	now := p.clock.Now()
	p.counter++
	t := Toast{
		ID:        fmt.Sprintf("toast-%d-%d", now.UnixMilli(), p.counter),
		Message:   message,
		Kind:      kind,
		Duration:  duration,
		CreatedAt: now,
	}
	p.toasts = append(p.toasts, t)
	id := t.ID
	p.expiry[id] = p.scope.After(duration, func() { p.remove(id) })
	p.mu.Unlock()

	p.notify()
	return true
}

// Dismiss starts the exit of toast id. The toast is removed ExitDuration
// later and its expiry timer no longer fires. Unknown or already leaving
// ids are ignored.
func (p *Provider) Dismiss(id string) {
	p.mu.Lock()
	i := p.indexLocked(id)
	if !p.mounted || i < 0 || p.toasts[i].Leaving {
		p.mu.Unlock()
		return
	}
	p.toasts[i].Leaving = true
	if cancel, ok := p.expiry[id]; ok {
		cancel()
		delete(p.expiry, id)
	}
	p.scope.After(ExitDuration, func() { p.remove(id) })
	p.mu.Unlock()

	p.notify()
}

func (p *Provider) remove(id string) {
	p.mu.Lock()
	delete(p.expiry, id)
	i := p.indexLocked(id)
	if i < 0 {
		p.mu.Unlock()
		return
	}
	p.toasts = append(p.toasts[:i], p.toasts[i+1:]...)
	p.mu.Unlock()

	p.notify()
}

func (p *Provider) indexLocked(id string) int {
	for i, t := range p.toasts {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (p *Provider) notify() {
	p.mu.Lock()
	subs := make([]func(), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

type handle struct {
	provider   *Provider
	generation uint64
}

func (h *handle) Publish(message string, kind Kind, duration time.Duration) {
	if h.provider.publish(h.generation, message, kind, duration) {
		return
	}
	if h.provider.fallback != nil {
		h.provider.fallback.Publish(message, kind, duration)
	}
}
