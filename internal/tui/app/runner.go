// Package app provides console adapters for command wiring.
package app

import (
	tea "github.com/charmbracelet/bubbletea"
)

// ProgramRunner defines the interface for running a bubbletea program.
type ProgramRunner interface {
	// Run starts the bubbletea program with the given model.
	Run(model tea.Model) error
}

// DefaultProgramRunner runs the program on the alternate screen.
type DefaultProgramRunner struct{}

// NewDefaultProgramRunner creates a new DefaultProgramRunner.
func NewDefaultProgramRunner() *DefaultProgramRunner {
	return &DefaultProgramRunner{}
}

// Run starts a bubbletea program with the given model.
func (r *DefaultProgramRunner) Run(model tea.Model) error {
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Notifier forwards change notifications from surfaces into the program.
// Sends never block: when the buffer is full the message is dropped, and
// the model catches up on the next one since every message only asks it to
// re-read state.
type Notifier struct {
	ch chan tea.Msg
}

// NewNotifier creates a Notifier buffering up to size messages.
func NewNotifier(size int) *Notifier {
	if size <= 0 {
		size = 1
	}
	return &Notifier{ch: make(chan tea.Msg, size)}
}

// Updates is the channel the model reads.
func (n *Notifier) Updates() <-chan tea.Msg {
	return n.ch
}

// Notify enqueues msg unless the buffer is full. It reports whether msg was queued.
func (n *Notifier) Notify(msg tea.Msg) bool {
	select {
	case n.ch <- msg:
		return true
	default:
		return false
	}
}

// Func returns a listener that enqueues msg.
func (n *Notifier) Func(msg tea.Msg) func() {
	return func() { n.Notify(msg) }
}
