// Package state holds the bubbletea model of the notification console.
package state

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gestionclinique/clinic-intray/internal/errors"
	"github.com/gestionclinique/clinic-intray/internal/surface"
	"github.com/gestionclinique/clinic-intray/internal/toast"
	"github.com/gestionclinique/clinic-intray/internal/tui/render"
)

const (
	headerFooterLines     = 4
	defaultViewportWidth  = 80
	defaultViewportHeight = 20
	actionTimeout         = 30 * time.Second
)

// Surface is what the console needs from the global notification surface.
type Surface interface {
	Snapshot() surface.Snapshot
	Click(ctx context.Context, key string) (destination string, navigated bool)
	Close(key string)
}

// Toasts is what the console needs from the toast provider.
type Toasts interface {
	Toasts() []toast.Toast
	Dismiss(id string)
}

// Navigator moves the shared route.
type Navigator interface {
	Navigate(path string)
}

// Deps are the collaborators of the console model.
type Deps struct {
	Surface   Surface
	Toasts    Toasts
	Publisher toast.Publisher
	Navigator Navigator
	// Updates delivers SurfaceChangedMsg, ToastsChangedMsg and StatusMsg.
	Updates <-chan tea.Msg
	// ErrorHandler, when set, is shared with the surfaces so their failures
	// reach the footer. Its messages must come back through Updates.
	ErrorHandler *errors.TUIHandler
}

// Model represents the console model for bubbletea.
type Model struct {
	deps         Deps
	keys         keyMap
	errorHandler *errors.TUIHandler

	snapshot surface.Snapshot
	toasts   []toast.Toast
	cursor   int
	width    int
	height   int

	routeMode  bool
	routeInput textinput.Model
	viewport   viewport.Model

	errorMessage string
}

// NewModel creates the console model. Without Deps.ErrorHandler a handler is
// created whose messages go to onStatus, so callers can forward them through
// Deps.Updates.
func NewModel(deps Deps, onStatus func(errors.Message)) *Model {
	ti := textinput.New()
	ti.Placeholder = "/dashboard"
	ti.Prompt = "route> "
	ti.CharLimit = 200

	m := &Model{
		deps:       deps,
		keys:       defaultKeyMap(),
		routeInput: ti,
		viewport:   viewport.New(defaultViewportWidth, defaultViewportHeight),
	}
	m.errorHandler = deps.ErrorHandler
	if m.errorHandler == nil {
		m.errorHandler = errors.NewTUIHandler(onStatus)
	}
	m.refresh()
	return m
}

// ErrorHandler returns the handler whose messages show in the footer.
func (m *Model) ErrorHandler() *errors.TUIHandler {
	return m.errorHandler
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForUpdate(m.deps.Updates))
}

// Update handles messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-headerFooterLines-len(m.toasts), 3)
		m.updateViewportContent()
		return m, nil
	case SurfaceChangedMsg:
		m.refresh()
		return m, waitForUpdate(m.deps.Updates)
	case ToastsChangedMsg:
		m.refresh()
		return m, waitForUpdate(m.deps.Updates)
	case StatusMsg:
		m.applyStatus(msg.Message)
		return m, waitForUpdate(m.deps.Updates)
	case clickDoneMsg:
		if msg.navigated {
			m.publish("Redirection vers "+msg.destination, toast.KindInfo)
		} else {
			m.errorHandler.Warning("Aucune page pour cette notification")
		}
		m.refresh()
		return m, nil
	case navigatedMsg:
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if m.routeMode {
			return m.handleRouteKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Open):
		if e, ok := m.selected(); ok {
			return m, m.clickCmd(e.Key)
		}
	case key.Matches(msg, m.keys.Close):
		if e, ok := m.selected(); ok {
			m.deps.Surface.Close(e.Key)
			m.refresh()
		}
	case key.Matches(msg, m.keys.Dismiss):
		for _, t := range m.toasts {
			if !t.Leaving {
				m.deps.Toasts.Dismiss(t.ID)
				break
			}
		}
		m.refresh()
	case key.Matches(msg, m.keys.Route):
		m.routeMode = true
		m.routeInput.SetValue("")
		return m, m.routeInput.Focus()
	}
	return m, nil
}

func (m *Model) handleRouteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.routeMode = false
		m.routeInput.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		path := strings.TrimSpace(m.routeInput.Value())
		m.routeMode = false
		m.routeInput.Blur()
		if path == "" {
			return m, nil
		}
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		return m, m.navigateCmd(path)
	}
	var cmd tea.Cmd
	m.routeInput, cmd = m.routeInput.Update(msg)
	return m, cmd
}

// clickCmd runs the click off the event loop: it may block on the backend
// and on the realtime handoff.
func (m *Model) clickCmd(entryKey string) tea.Cmd {
	s := m.deps.Surface
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		dest, ok := s.Click(ctx, entryKey)
		return clickDoneMsg{key: entryKey, destination: dest, navigated: ok}
	}
}

func (m *Model) navigateCmd(path string) tea.Cmd {
	nav := m.deps.Navigator
	return func() tea.Msg {
		nav.Navigate(path)
		return navigatedMsg{path: path}
	}
}

func (m *Model) publish(message string, kind toast.Kind) {
	if m.deps.Publisher != nil {
		m.deps.Publisher.Publish(message, kind, 0)
	}
}

func (m *Model) applyStatus(msg errors.Message) {
	switch msg.Type {
	case errors.MessageTypeError:
		m.errorMessage = msg.Text
		m.publish(msg.Text, toast.KindError)
	case errors.MessageTypeWarning:
		m.publish(msg.Text, toast.KindWarning)
	case errors.MessageTypeSuccess:
		m.publish(msg.Text, toast.KindSuccess)
	default:
		m.publish(msg.Text, toast.KindInfo)
	}
}

func (m *Model) refresh() {
	if m.deps.Surface != nil {
		m.snapshot = m.deps.Surface.Snapshot()
	}
	if m.deps.Toasts != nil {
		m.toasts = m.deps.Toasts.Toasts()
	}
	m.clampCursor()
	m.updateViewportContent()
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
	m.updateViewportContent()
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.snapshot.Entries) {
		m.cursor = len(m.snapshot.Entries) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) selected() (surface.Entry, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snapshot.Entries) {
		return surface.Entry{}, false
	}
	return m.snapshot.Entries[m.cursor], true
}

func (m *Model) updateViewportContent() {
	content := render.Placeholder(m.snapshot)
	if content == "" {
		content = render.Entries(m.snapshot.Entries, m.cursor, m.viewport.Width)
	}
	m.viewport.SetContent(content)
}

// View renders the console.
func (m *Model) View() string {
	var s strings.Builder

	s.WriteString(render.Header(render.HeaderState{
		Route:     m.snapshot.Route,
		ChatRoute: m.snapshot.ChatRoute,
		Connected: m.snapshot.Connected,
		Unread:    m.snapshot.Unread,
		Width:     m.width,
	}))
	s.WriteString("\n")
	s.WriteString(m.viewport.View())

	for _, t := range m.toasts {
		s.WriteString("\n")
		s.WriteString(render.Toast(t, m.width))
	}

	s.WriteString("\n")
	input := ""
	if m.routeMode {
		input = m.routeInput.View()
	}
	s.WriteString(render.Footer(render.FooterState{
		RouteMode:    m.routeMode,
		RouteInput:   input,
		Width:        m.width,
		ErrorMessage: m.errorMessage,
	}))
	return s.String()
}

// Cursor returns the selected row index.
func (m *Model) Cursor() int {
	return m.cursor
}
