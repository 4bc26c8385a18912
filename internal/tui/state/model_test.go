package state

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gestionclinique/clinic-intray/internal/errors"
	"github.com/gestionclinique/clinic-intray/internal/notification"
	"github.com/gestionclinique/clinic-intray/internal/surface"
	"github.com/gestionclinique/clinic-intray/internal/toast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSurface struct {
	mu      sync.Mutex
	snap    surface.Snapshot
	clicked []string
	closed  []string
	// nowhere makes Click report no destination.
	nowhere bool
}

func (f *fakeSurface) Snapshot() surface.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSurface) Click(_ context.Context, key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicked = append(f.clicked, key)
	if f.nowhere {
		return "", false
	}
	return "/medecin/chat", true
}

func (f *fakeSurface) Close(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, key)
	for i, e := range f.snap.Entries {
		if e.Key == key {
			f.snap.Entries = append(f.snap.Entries[:i:i], f.snap.Entries[i+1:]...)
			return
		}
	}
}

type fakeToasts struct {
	list      []toast.Toast
	dismissed []string
}

func (f *fakeToasts) Toasts() []toast.Toast { return f.list }
func (f *fakeToasts) Dismiss(id string)     { f.dismissed = append(f.dismissed, id) }

type fakePublisher struct{ messages []string }

func (f *fakePublisher) Publish(message string, kind toast.Kind, _ time.Duration) {
	f.messages = append(f.messages, string(kind)+":"+message)
}

type fakeNavigator struct{ paths []string }

func (f *fakeNavigator) Navigate(path string) { f.paths = append(f.paths, path) }

type harness struct {
	model   *Model
	surface *fakeSurface
	toasts  *fakeToasts
	pub     *fakePublisher
	nav     *fakeNavigator
}

func newHarness(entries ...surface.Entry) *harness {
	h := &harness{
		surface: &fakeSurface{snap: surface.Snapshot{
			Phase: surface.PhaseReady, HasUser: true, Route: "/dashboard",
			Connected: true, Entries: entries, Total: len(entries), Unread: len(entries),
		}},
		toasts: &fakeToasts{},
		pub:    &fakePublisher{},
		nav:    &fakeNavigator{},
	}
	h.model = NewModel(Deps{
		Surface: h.surface, Toasts: h.toasts, Publisher: h.pub, Navigator: h.nav,
	}, nil)
	return h
}

func entries(n int) []surface.Entry {
	out := make([]surface.Entry, n)
	for i := range out {
		out[i] = surface.Entry{Key: "n-" + string(rune('a'+i)), Type: notification.TypeMessage, Preview: "msg"}
	}
	return out
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m *Model, msgs ...tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	for _, msg := range msgs {
		_, cmd = m.Update(msg)
	}
	return cmd
}

func TestCursorMovementIsClamped(t *testing.T) {
	h := newHarness(entries(3)...)

	send(h.model, keyMsg("j"), keyMsg("j"), keyMsg("j"), keyMsg("j"))
	assert.Equal(t, 2, h.model.Cursor())

	send(h.model, keyMsg("k"), keyMsg("k"), keyMsg("k"))
	assert.Equal(t, 0, h.model.Cursor())
}

func TestEnterClicksSelectedEntry(t *testing.T) {
	h := newHarness(entries(2)...)
	send(h.model, keyMsg("j"))

	cmd := send(h.model, keyMsg("enter"))
	require.NotNil(t, cmd)
	msg := cmd()

	assert.Equal(t, []string{"n-b"}, h.surface.clicked)
	send(h.model, msg)
	assert.Equal(t, []string{"info:Redirection vers /medecin/chat"}, h.pub.messages)
}

func TestCloseRemovesSelectedEntry(t *testing.T) {
	h := newHarness(entries(2)...)
	send(h.model, keyMsg("j"), keyMsg("x"))

	assert.Equal(t, []string{"n-b"}, h.surface.closed)
	assert.Equal(t, 0, h.model.Cursor(), "cursor follows the shorter list")
}

func TestKeysOnEmptyListAreNoops(t *testing.T) {
	h := newHarness()
	assert.Nil(t, send(h.model, keyMsg("enter")))
	send(h.model, keyMsg("x"))
	assert.Empty(t, h.surface.clicked)
	assert.Empty(t, h.surface.closed)
	assert.Contains(t, h.model.View(), "Aucune notification")
}

func TestRouteModeNavigates(t *testing.T) {
	h := newHarness()
	send(h.model, keyMsg("r"))
	assert.Contains(t, h.model.View(), "Route:")

	for _, r := range "medecin/chat" {
		send(h.model, keyMsg(string(r)))
	}
	cmd := send(h.model, keyMsg("enter"))
	require.NotNil(t, cmd)
	cmd()

	assert.Equal(t, []string{"/medecin/chat"}, h.nav.paths)
	assert.NotContains(t, h.model.View(), "Route:")
}

func TestRouteModeEscapeCancels(t *testing.T) {
	h := newHarness()
	send(h.model, keyMsg("r"), keyMsg("/"), keyMsg("x"), keyMsg("esc"))

	assert.Empty(t, h.nav.paths)
	assert.Empty(t, h.surface.closed, "x typed in route mode is not a close")
}

func TestDismissFirstLiveToast(t *testing.T) {
	h := newHarness()
	h.toasts.list = []toast.Toast{
		{ID: "toast-1", Message: "sortant", Leaving: true},
		{ID: "toast-2", Message: "visible"},
	}
	send(h.model, ToastsChangedMsg{}, keyMsg("t"))

	assert.Equal(t, []string{"toast-2"}, h.toasts.dismissed)
	assert.Contains(t, h.model.View(), "visible")
}

func TestSurfaceChangedRefreshesView(t *testing.T) {
	h := newHarness()
	h.surface.mu.Lock()
	h.surface.snap.Entries = []surface.Entry{{Key: "tmp-1", Type: notification.TypeMessage, Preview: "Bonjour", Temporary: true}}
	h.surface.mu.Unlock()

	send(h.model, SurfaceChangedMsg{})

	assert.Contains(t, h.model.View(), "Bonjour")
}

func TestStatusErrorShowsInFooterAndToast(t *testing.T) {
	h := newHarness()
	send(h.model, StatusMsg{Message: errors.Message{Text: "connexion perdue", Type: errors.MessageTypeError}})

	assert.Contains(t, h.model.View(), "connexion perdue")
	assert.Equal(t, []string{"error:connexion perdue"}, h.pub.messages)
}

func TestUpdatesChannelFeedsModel(t *testing.T) {
	updates := make(chan tea.Msg, 1)
	s := &fakeSurface{snap: surface.Snapshot{Phase: surface.PhaseReady, HasUser: true}}
	var statuses []errors.Message
	m := NewModel(Deps{Surface: s, Toasts: &fakeToasts{}, Updates: updates}, func(msg errors.Message) {
		statuses = append(statuses, msg)
	})

	updates <- SurfaceChangedMsg{}
	cmd := waitForUpdate(updates)
	assert.IsType(t, SurfaceChangedMsg{}, cmd())

	m.ErrorHandler().Warning("attention")
	require.Len(t, statuses, 1)
	assert.Equal(t, "attention", statuses[0].Text)

	close(updates)
	assert.Nil(t, waitForUpdate(updates)())
	assert.Nil(t, waitForUpdate(nil))
	assert.NotNil(t, m.Init())
}

func TestClickWithoutDestinationIsReported(t *testing.T) {
	var statuses []errors.Message
	handler := errors.NewTUIHandler(func(msg errors.Message) { statuses = append(statuses, msg) })
	s := &fakeSurface{
		snap:    surface.Snapshot{Phase: surface.PhaseReady, HasUser: true, Entries: entries(1)},
		nowhere: true,
	}
	pub := &fakePublisher{}
	m := NewModel(Deps{Surface: s, Toasts: &fakeToasts{}, Publisher: pub, ErrorHandler: handler}, nil)
	assert.Same(t, handler, m.ErrorHandler())

	cmd := send(m, keyMsg("enter"))
	require.NotNil(t, cmd)
	send(m, cmd())

	require.Len(t, statuses, 1)
	assert.Equal(t, errors.MessageTypeWarning, statuses[0].Type)
	assert.Empty(t, pub.messages, "status arrives through the update channel")

	send(m, StatusMsg{Message: statuses[0]})
	assert.Equal(t, []string{"warning:Aucune page pour cette notification"}, pub.messages)
}

func TestQuit(t *testing.T) {
	h := newHarness()
	cmd := send(h.model, keyMsg("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestWindowResize(t *testing.T) {
	h := newHarness(entries(1)...)
	send(h.model, tea.WindowSizeMsg{Width: 100, Height: 30})
	view := h.model.View()
	assert.Contains(t, view, "clinic-intray")
	assert.Contains(t, view, "msg")
}
