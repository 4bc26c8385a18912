// Package realtime manages the single realtime connection to the clinic
// backend: connect for a user, dispatch frames in arrival order, disconnect.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/gestionclinique/clinic-intray/internal/logging"
	"github.com/gestionclinique/clinic-intray/internal/notification"
	"github.com/google/uuid"
)

// ErrClosed reports a connection that was closed locally.
var ErrClosed = errors.New("realtime connection closed")

// State is the lifecycle state of the manager's connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "disconnected"
	}
}

// Lease identifies one Connect call. It lets an owner release the connection
// it opened without closing a connection someone else opened since.
type Lease string

// MessageHandler receives decoded inbound frames.
type MessageHandler func(frame notification.Frame)

type connection struct {
	lease     Lease
	userID    int64
	onMessage MessageHandler
	onOpen    func()
	onClose   func()
	cancel    context.CancelFunc

	// dispatch is held while a callback runs so that closing waits for it.
	dispatch sync.Mutex
	mu       sync.Mutex
	conn     Conn
	shut     bool
}

// Manager owns at most one connection.
type Manager struct {
	dialer Dialer
	url    string
	token  func() string
	logger logging.Logger

	mu      sync.Mutex
	current *connection
	state   State
	wg      sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithTokenSource sends the token as a bearer Authorization header.
func WithTokenSource(ts func() string) Option {
	return func(m *Manager) { m.token = ts }
}

// WithLogger sets the manager's logger.
func WithLogger(l logging.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager connecting to wsURL through dialer.
func NewManager(dialer Dialer, wsURL string, opts ...Option) *Manager {
	m := &Manager{dialer: dialer, url: wsURL, logger: logging.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State reports the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns the lease of the live connection, or "".
func (m *Manager) Current() Lease {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}
	return m.current.lease
}

// Connect opens a connection for userID. The dial runs in the background:
// onOpen fires once after the handshake and before any onMessage, then
// onMessage is called once per frame in arrival order. A connection that
// already exists is closed first.
//
// onClose fires at most once, when the connection ends without its lease
// being released: the dial failed, the backend closed it, or a later Connect
// replaced it. Release and Disconnect never trigger it.
//
// Callbacks must not call Connect, Disconnect or Release synchronously.
func (m *Manager) Connect(userID int64, onMessage MessageHandler, onOpen, onClose func()) Lease {
	ctx, cancel := context.WithCancel(context.Background())
	c := &connection{
		lease:     Lease(uuid.NewString()),
		userID:    userID,
		onMessage: onMessage,
		onOpen:    onOpen,
		onClose:   onClose,
		cancel:    cancel,
	}

	m.mu.Lock()
	prev := m.current
	m.current = c
	m.state = StateConnecting
	m.wg.Add(1)
	m.mu.Unlock()

	if prev != nil {
		m.logger.Warn("connect called while a connection exists, closing previous",
			"previous_user_id", prev.userID, "user_id", userID)
		if prev.close() {
			prev.reportClosed()
		}
	}

	m.logger.Debug("connecting", "user_id", userID, "lease", string(c.lease))
	go m.run(ctx, c)
	return c.lease
}

// Disconnect closes the current connection or cancels a pending dial. It is
// a no-op when nothing is connected. No callback of the closed connection
// runs after Disconnect returns.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	c := m.current
	m.current = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	if c != nil {
		m.logger.Debug("disconnecting", "user_id", c.userID, "lease", string(c.lease))
		c.close()
	}
}

// Release disconnects only if lease still identifies the current connection.
// It reports whether a connection was closed.
func (m *Manager) Release(lease Lease) bool {
	if lease == "" {
		return false
	}
	m.mu.Lock()
	c := m.current
	if c == nil || c.lease != lease {
		m.mu.Unlock()
		return false
	}
	m.current = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	m.logger.Debug("releasing connection", "user_id", c.userID, "lease", string(lease))
	c.close()
	return true
}

// Wait blocks until every reader goroutine has exited.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) endpoint(userID int64) (string, error) {
	u, err := url.Parse(m.url)
	if err != nil {
		return "", fmt.Errorf("parse websocket url: %w", err)
	}
	q := u.Query()
	q.Set("userId", strconv.FormatInt(userID, 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (m *Manager) run(ctx context.Context, c *connection) {
	defer m.wg.Done()
	log := m.logger.With("user_id", c.userID, "lease", string(c.lease))

	target, err := m.endpoint(c.userID)
	if err != nil {
		log.Error("connect failed", "error", err.Error())
		m.drop(c)
		return
	}
	header := http.Header{}
	if m.token != nil {
		if token := m.token(); token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}

	conn, err := m.dialer.Dial(ctx, target, header)
	if err != nil {
		if ctx.Err() == nil {
			log.Error("connect failed", "error", err.Error())
		}
		m.drop(c)
		return
	}
	if !c.attach(conn) {
		_ = conn.Close()
		return
	}

	m.mu.Lock()
	if m.current == c {
		m.state = StateOpen
	}
	m.mu.Unlock()
	log.Info("connected")

	c.deliver(func() {
		if c.onOpen != nil {
			c.onOpen()
		}
	})

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			if !c.isClosed() {
				log.Warn("connection lost", "error", err.Error())
			}
			m.drop(c)
			return
		}
		frame, err := notification.DecodeFrame(data)
		if err != nil {
			log.Warn("dropping malformed frame", "error", err.Error())
			continue
		}
		if !c.deliver(func() {
			if c.onMessage != nil {
				c.onMessage(frame)
			}
		}) {
			return
		}
	}
}

// drop clears c if it is still current and closes it. The owner hears about
// it unless c was already closed locally.
func (m *Manager) drop(c *connection) {
	m.mu.Lock()
	if m.current == c {
		m.current = nil
		m.state = StateDisconnected
	}
	m.mu.Unlock()
	if c.close() {
		c.reportClosed()
	}
}

func (c *connection) attach(conn Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shut {
		return false
	}
	c.conn = conn
	return true
}

func (c *connection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shut
}

// deliver runs fn unless the connection is closed. It reports whether the
// connection is still live.
func (c *connection) deliver(fn func()) bool {
	c.dispatch.Lock()
	defer c.dispatch.Unlock()
	if c.isClosed() {
		return false
	}
	fn()
	return true
}

func (c *connection) reportClosed() {
	if c.onClose != nil {
		c.onClose()
	}
}

// close is idempotent and reports whether this call closed c. It waits for
// an in-flight callback to return.
func (c *connection) close() bool {
	c.mu.Lock()
	if c.shut {
		c.mu.Unlock()
		return false
	}
	c.shut = true
	conn := c.conn
	c.mu.Unlock()

	c.cancel()
	if conn != nil {
		_ = conn.Close()
	}
	c.dispatch.Lock()
	c.dispatch.Unlock() //nolint:staticcheck // barrier for in-flight callbacks
	return true
}
