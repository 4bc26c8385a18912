package state

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gestionclinique/clinic-intray/internal/errors"
)

// SurfaceChangedMsg is sent when the notification surface changed.
type SurfaceChangedMsg struct{}

// ToastsChangedMsg is sent when the toast list changed.
type ToastsChangedMsg struct{}

// StatusMsg carries a message from the TUI error handler.
type StatusMsg struct {
	Message errors.Message
}

// clickDoneMsg reports where a click navigated.
type clickDoneMsg struct {
	key         string
	destination string
	navigated   bool
}

// navigatedMsg reports a route change typed by the user.
type navigatedMsg struct {
	path string
}

// waitForUpdate blocks on updates and returns the next message.
func waitForUpdate(updates <-chan tea.Msg) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-updates
		if !ok {
			return nil
		}
		return msg
	}
}
