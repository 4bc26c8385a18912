package surface

import (
	"errors"
	"sync"

	"github.com/gestionclinique/clinic-intray/internal/logging"
	"github.com/gestionclinique/clinic-intray/internal/notification"
	"github.com/gestionclinique/clinic-intray/internal/session"
)

// chatBacklog bounds the messages kept by the chat surface.
const chatBacklog = 50

// Chat owns the realtime connection while the current path is a chat route
// and keeps the messages received on it.
type Chat struct {
	store  session.Store
	owner  *owner
	logger logging.Logger

	routeMu sync.Mutex

	mu        sync.Mutex
	mounted   bool
	user      session.Session
	hasUser   bool
	connected bool
	messages  []notification.Message
	unbind    []func()
	nextSub   int
	subs      map[int]func()
}

// NewChat creates an unmounted chat surface.
func NewChat(store session.Store, conn Connector, logger logging.Logger) *Chat {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Chat{
		store:  store,
		owner:  &owner{conn: conn, onChat: true},
		logger: logger,
		subs:   make(map[int]func()),
	}
}

// Bind follows rs like Global.Bind.
func (c *Chat) Bind(rs RouteSource) {
	leave := rs.OnLeave(func(_, _ string) { c.yield() })
	enter := rs.Subscribe(c.SetRoute)
	c.mu.Lock()
	c.unbind = append(c.unbind, leave, enter)
	c.mu.Unlock()
}

// Mount reads the session user and evaluates path.
func (c *Chat) Mount(path string) {
	c.routeMu.Lock()
	defer c.routeMu.Unlock()

	sess, err := c.store.Load()
	if err != nil && !errors.Is(err, session.ErrNoUser) {
		c.logger.Warn("reading session failed", "error", err.Error())
	}

	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = true
	c.user = sess
	c.hasUser = err == nil
	c.mu.Unlock()

	c.applyRoute(path)
}

// SetRoute releases a held connection, then connects if path is a chat route.
func (c *Chat) SetRoute(path string) {
	c.routeMu.Lock()
	defer c.routeMu.Unlock()
	c.mu.Lock()
	mounted := c.mounted
	c.mu.Unlock()
	if mounted {
		c.applyRoute(path)
	}
}

func (c *Chat) yield() {
	c.routeMu.Lock()
	defer c.routeMu.Unlock()
	c.release()
}

func (c *Chat) applyRoute(path string) {
	c.release()

	c.mu.Lock()
	hasUser, userID := c.hasUser, c.user.UserID
	c.mu.Unlock()
	if !hasUser || !c.owner.wants(path) {
		return
	}
	c.logger.Debug("opening chat connection", "path", path, "user_id", userID)
	c.owner.acquire(userID, c.handleFrame, c.handleOpen, c.handleLost)
}

func (c *Chat) release() {
	c.owner.release()
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

func (c *Chat) handleOpen() {
	c.logger.Info("chat connection open")
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	c.notify()
}

func (c *Chat) handleLost() {
	c.logger.Warn("chat connection lost")
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	c.notify()
}

func (c *Chat) handleFrame(f notification.Frame) {
	if !f.IsNewMessage() {
		return
	}
	c.mu.Lock()
	c.messages = append(c.messages, *f.Message)
	if len(c.messages) > chatBacklog {
		c.messages = c.messages[len(c.messages)-chatBacklog:]
	}
	c.mu.Unlock()
	c.notify()
}

// Messages returns the received messages, oldest first.
func (c *Chat) Messages() []notification.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]notification.Message(nil), c.messages...)
}

// Connected reports whether the chat connection is open.
func (c *Chat) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// HoldsConnection reports whether the chat surface owns the connection.
func (c *Chat) HoldsConnection() bool {
	return c.owner.holds()
}

// Subscribe calls fn after every received message or connection change.
func (c *Chat) Subscribe(fn func()) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	id := c.nextSub
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Unmount releases the connection and drops route bindings.
func (c *Chat) Unmount() {
	c.routeMu.Lock()
	defer c.routeMu.Unlock()
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = false
	unbind := c.unbind
	c.unbind = nil
	c.mu.Unlock()
	for _, fn := range unbind {
		fn()
	}
	c.release()
}

func (c *Chat) notify() {
	c.mu.Lock()
	subs := make([]func(), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}
