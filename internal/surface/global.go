package surface

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gestionclinique/clinic-intray/internal/clock"
	uierrors "github.com/gestionclinique/clinic-intray/internal/errors"
	"github.com/gestionclinique/clinic-intray/internal/history"
	"github.com/gestionclinique/clinic-intray/internal/logging"
	"github.com/gestionclinique/clinic-intray/internal/notification"
	"github.com/gestionclinique/clinic-intray/internal/route"
	"github.com/gestionclinique/clinic-intray/internal/session"
	"github.com/google/uuid"
)

const (
	// DefaultTransientTTL is how long a temporary entry stays visible.
	DefaultTransientTTL = 5 * time.Second
	// MaxVisible bounds the rendered part of the active set.
	MaxVisible = 10
	// keptOnInsert is how many existing entries survive a temporary insertion.
	keptOnInsert = 4
)

// Phase is the load state of the global surface.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	default:
		return "idle"
	}
}

// Snapshot is a consistent view of the global surface.
type Snapshot struct {
	Phase     Phase
	HasUser   bool
	UserID    int64
	Route     string
	ChatRoute bool
	Connected bool
	// Entries holds at most MaxVisible entries, most recent first.
	Entries []Entry
	// Total is the size of the active set.
	Total  int
	Unread int
}

// Global is the process-wide notification surface.
type Global struct {
	store   session.Store
	source  NotificationSource
	nav     Navigator
	owner   *owner
	journal Journal
	logger  logging.Logger
	report  uierrors.ErrorHandler
	clock   clock.Clock
	ttl     time.Duration

	// routeMu serializes mount, route changes and unmount.
	routeMu sync.Mutex

	mu        sync.Mutex
	phase     Phase
	mounted   bool
	user      session.Session
	hasUser   bool
	route     string
	connected bool
	entries   []Entry
	unread    int
	scope     *clock.Scope
	expiry    map[string]func()
	unbind    []func()
	nextSub   int
	subs      map[int]func()
}

// Option configures a Global surface.
type Option func(*Global)

// WithClock sets the clock for temporary entry expiry.
func WithClock(c clock.Clock) Option {
	return func(g *Global) { g.clock = c }
}

// WithTransientTTL overrides how long temporary entries live.
func WithTransientTTL(d time.Duration) Option {
	return func(g *Global) {
		if d > 0 {
			g.ttl = d
		}
	}
}

// WithJournal records entry events in j.
func WithJournal(j Journal) Option {
	return func(g *Global) { g.journal = j }
}

// WithErrorHandler shows failures the user should know about: a failed load,
// a rejected mark-read and a lost connection.
func WithErrorHandler(h uierrors.ErrorHandler) Option {
	return func(g *Global) { g.report = h }
}

// WithLogger sets the surface logger.
func WithLogger(l logging.Logger) Option {
	return func(g *Global) { g.logger = l }
}

// NewGlobal creates an unmounted global surface.
func NewGlobal(store session.Store, source NotificationSource, conn Connector, nav Navigator, opts ...Option) *Global {
	g := &Global{
		store:  store,
		source: source,
		nav:    nav,
		owner:  &owner{conn: conn, onChat: false},
		logger: logging.Nop(),
		clock:  clock.Real(),
		ttl:    DefaultTransientTTL,
		expiry: make(map[string]func()),
		subs:   make(map[int]func()),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Bind follows rs: the connection is released when leaving a path and
// re-evaluated on the new one. Bindings are dropped on Unmount.
func (g *Global) Bind(rs RouteSource) {
	leave := rs.OnLeave(func(_, _ string) { g.yield() })
	enter := rs.Subscribe(g.SetRoute)
	g.mu.Lock()
	g.unbind = append(g.unbind, leave, enter)
	g.mu.Unlock()
}

// Mount loads the unread notifications of the session user and evaluates
// path. Without a user nothing is fetched or connected.
func (g *Global) Mount(ctx context.Context, path string) {
	g.routeMu.Lock()
	defer g.routeMu.Unlock()

	g.mu.Lock()
	if g.mounted {
		g.mu.Unlock()
		return
	}
	g.mounted = true
	g.phase = PhaseLoading
	g.route = path
	g.scope = clock.NewScope(g.clock)
	g.mu.Unlock()
	g.notify()

	sess, err := g.store.Load()
	if err != nil {
		if !errors.Is(err, session.ErrNoUser) {
			g.logger.Warn("reading session failed", "error", err.Error())
		}
		g.mu.Lock()
		g.phase = PhaseReady
		g.mu.Unlock()
		g.notify()
		return
	}

	fetched, err := g.source.FetchUnread(ctx, sess.UserID)
	if err != nil {
		g.logger.Error("fetching unread notifications failed", "user_id", sess.UserID, "error", err.Error())
		g.warn("Notifications non chargées")
		fetched = nil
	}
	shown := notification.FilterDisplayable(fetched)
	entries := make([]Entry, 0, len(shown))
	for _, n := range shown {
		entries = append(entries, entryFromNotification(n))
	}
	g.logger.Info("unread notifications loaded", "user_id", sess.UserID,
		"fetched", len(fetched), "displayable", len(entries))

	g.mu.Lock()
	g.user = sess
	g.hasUser = true
	g.entries = entries
	g.unread = len(entries)
	g.phase = PhaseReady
	g.mu.Unlock()

	for _, e := range entries {
		g.record(history.EventShown, e, "")
	}
	g.applyRoute(path)
}

// SetRoute re-evaluates connection ownership for path: a held connection is
// released, then a new one is opened unless path is a chat route.
func (g *Global) SetRoute(path string) {
	g.routeMu.Lock()
	defer g.routeMu.Unlock()

	g.mu.Lock()
	mounted := g.mounted
	if !mounted {
		g.route = path
	}
	g.mu.Unlock()
	if !mounted {
		return
	}
	g.applyRoute(path)
}

func (g *Global) yield() {
	g.routeMu.Lock()
	defer g.routeMu.Unlock()
	g.release()
}

// applyRoute must be called with routeMu held.
func (g *Global) applyRoute(path string) {
	g.release()

	g.mu.Lock()
	g.route = path
	hasUser := g.hasUser
	userID := g.user.UserID
	g.mu.Unlock()

	if !hasUser {
		g.notify()
		return
	}
	if !g.owner.wants(path) {
		g.logger.Debug("chat route active, global connection not opened", "path", path)
		g.notify()
		return
	}

	g.logger.Debug("opening global connection", "path", path, "user_id", userID)
	g.owner.acquire(userID, g.handleFrame, g.handleOpen, g.handleLost)
	g.notify()
}

func (g *Global) release() {
	if g.owner.release() {
		g.logger.Debug("global connection closed")
	}
	g.mu.Lock()
	changed := g.connected
	g.connected = false
	g.mu.Unlock()
	if changed {
		g.notify()
	}
}

func (g *Global) handleOpen() {
	g.logger.Info("global connection open")
	g.mu.Lock()
	g.connected = true
	g.mu.Unlock()
	g.notify()
}

func (g *Global) handleLost() {
	g.logger.Warn("global connection lost")
	g.mu.Lock()
	g.connected = false
	g.mu.Unlock()
	g.warn("Connexion temps réel perdue")
	g.notify()
}

func (g *Global) handleFrame(f notification.Frame) {
	if !f.IsNewMessage() {
		return
	}

	g.mu.Lock()
	if !g.mounted {
		g.mu.Unlock()
		return
	}
	key := "tmp-" + uuid.NewString()
	e := transientEntry(key, f.Message, g.clock.Now())
	if len(g.entries) > keptOnInsert {
		for _, dropped := range g.entries[keptOnInsert:] {
			if cancel, ok := g.expiry[dropped.Key]; ok {
				cancel()
				delete(g.expiry, dropped.Key)
			}
		}
		g.entries = g.entries[:keptOnInsert]
	}
	g.entries = append([]Entry{e}, g.entries...)
	g.expiry[key] = g.scope.After(g.ttl, func() { g.expire(key) })
	g.mu.Unlock()

	g.logger.Debug("temporary notification added", "key", key,
		"conversation_id", e.ConversationID, "sender", e.SenderName)
	g.record(history.EventShown, e, "")
	g.notify()
}

func (g *Global) expire(key string) {
	if e, ok := g.remove(key); ok {
		g.record(history.EventExpired, e, "")
		g.notify()
	}
}

// remove drops key from the active set and cancels its expiry.
func (g *Global) remove(key string) (Entry, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cancel, ok := g.expiry[key]; ok {
		cancel()
		delete(g.expiry, key)
	}
	for i, e := range g.entries {
		if e.Key == key {
			g.entries = append(g.entries[:i:i], g.entries[i+1:]...)
			return e, true
		}
	}
	return Entry{}, false
}

// Click acknowledges and follows the entry with key. A persisted entry is
// marked read and removed only when the backend accepts it. The returned
// destination is where the click navigated, if anywhere.
func (g *Global) Click(ctx context.Context, key string) (destination string, navigated bool) {
	g.mu.Lock()
	e, found := g.findLocked(key)
	sess := g.user
	g.mu.Unlock()
	if !found {
		return "", false
	}

	if !e.Temporary && e.ID != 0 {
		if err := g.source.MarkRead(ctx, e.ID); err != nil {
			g.logger.Error("marking notification read failed", "id", e.ID, "error", err.Error())
			if g.report != nil {
				g.report.Error("Impossible de marquer la notification comme lue")
			}
		} else if removed, ok := g.remove(key); ok {
			g.mu.Lock()
			g.unread = max(0, g.unread-1)
			g.mu.Unlock()
			g.record(history.EventRead, removed, "")
			g.notify()
		}
	}

	role, err := sess.ParsedRole()
	if err != nil {
		g.logger.Warn("stored role is not valid JSON, using generic chat", "error", err.Error())
		role = ""
	}
	destination, navigated = route.Destination(e.Type, role)
	g.record(history.EventClicked, e, destination)
	if navigated {
		g.nav.Navigate(destination)
	}
	return destination, navigated
}

// Close dismisses the entry locally. The backend read state is unchanged.
func (g *Global) Close(key string) {
	e, ok := g.remove(key)
	if !ok {
		return
	}
	g.mu.Lock()
	g.unread = max(0, g.unread-1)
	g.mu.Unlock()
	g.record(history.EventClosed, e, "")
	g.notify()
}

// Unmount releases the connection, cancels expiry timers and drops route
// bindings. Timers that were due are no-ops afterwards.
func (g *Global) Unmount() {
	g.routeMu.Lock()
	defer g.routeMu.Unlock()

	g.mu.Lock()
	if !g.mounted {
		g.mu.Unlock()
		return
	}
	g.mounted = false
	g.phase = PhaseIdle
	g.scope.Close()
	g.expiry = make(map[string]func())
	g.entries = nil
	g.unread = 0
	unbind := g.unbind
	g.unbind = nil
	g.mu.Unlock()

	for _, fn := range unbind {
		fn()
	}
	g.release()
	g.notify()
}

// Snapshot returns the current state.
func (g *Global) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	visible := g.entries
	if len(visible) > MaxVisible {
		visible = visible[:MaxVisible]
	}
	out := make([]Entry, 0, len(visible))
	for _, e := range visible {
		if e.Type.Displayable() {
			out = append(out, e)
		}
	}
	return Snapshot{
		Phase:     g.phase,
		HasUser:   g.hasUser,
		UserID:    g.user.UserID,
		Route:     g.route,
		ChatRoute: route.IsChatRoute(g.route),
		Connected: g.connected,
		Entries:   out,
		Total:     len(g.entries),
		Unread:    g.unread,
	}
}

// HoldsConnection reports whether the surface owns the realtime connection.
func (g *Global) HoldsConnection() bool {
	return g.owner.holds()
}

// Subscribe calls fn after every state change.
func (g *Global) Subscribe(fn func()) (unsubscribe func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextSub++
	id := g.nextSub
	g.subs[id] = fn
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.subs, id)
	}
}

func (g *Global) findLocked(key string) (Entry, bool) {
	for _, e := range g.entries {
		if e.Key == key {
			return e, true
		}
	}
	return Entry{}, false
}

func (g *Global) notify() {
	g.mu.Lock()
	subs := make([]func(), 0, len(g.subs))
	for _, fn := range g.subs {
		subs = append(subs, fn)
	}
	g.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

func (g *Global) warn(msg string) {
	if g.report != nil {
		g.report.Warning(msg)
	}
}

func (g *Global) record(kind history.EventKind, e Entry, destination string) {
	if g.journal == nil {
		return
	}
	g.mu.Lock()
	userID := g.user.UserID
	g.mu.Unlock()
	_, err := g.journal.Record(context.Background(), history.Event{
		EntryKey:       e.Key,
		NotificationID: e.ID,
		UserID:         userID,
		Kind:           kind,
		Type:           string(e.Type),
		Sender:         e.SenderName,
		Preview:        e.Preview,
		Temporary:      e.Temporary,
		Destination:    destination,
		CreatedAt:      g.clock.Now(),
	})
	if err != nil {
		g.logger.Warn("recording history failed", "event", string(kind), "key", e.Key, "error", err.Error())
	}
}
