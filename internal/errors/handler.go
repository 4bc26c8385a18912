// Package errors routes user-facing messages to the right surface:
// coloured console output for commands, a status line for the console UI.
package errors

import (
	"sync"
	"time"
)

// ErrorHandler is the interface for user-facing messages.
type ErrorHandler interface {
	Error(msg string)
	Warning(msg string)
	Info(msg string)
	Success(msg string)
}

// ColorOutput is the console sink used by CLIHandler.
type ColorOutput interface {
	Error(msgs ...string)
	Warning(msgs ...string)
	Info(msgs ...string)
	Success(msgs ...string)
}

// CLIHandler prints messages through a ColorOutput.
type CLIHandler struct {
	colors ColorOutput
}

var _ ErrorHandler = (*CLIHandler)(nil)

// NewCLIHandler creates a CLI handler writing to colors.
func NewCLIHandler(colors ColorOutput) *CLIHandler {
	return &CLIHandler{colors: colors}
}

func (h *CLIHandler) Error(msg string)   { h.colors.Error(msg) }
func (h *CLIHandler) Warning(msg string) { h.colors.Warning(msg) }
func (h *CLIHandler) Info(msg string)    { h.colors.Info(msg) }
func (h *CLIHandler) Success(msg string) { h.colors.Success(msg) }

// MessageType classifies a TUI message.
type MessageType int

const (
	MessageTypeError MessageType = iota
	MessageTypeWarning
	MessageTypeInfo
	MessageTypeSuccess
)

// Message is one message recorded by a TUIHandler.
type Message struct {
	Text      string
	Type      MessageType
	Timestamp time.Time
}

// TUIHandler stores messages for display in the console status line.
type TUIHandler struct {
	mu       sync.RWMutex
	messages []Message
	onAdd    func(msg Message)
}

var _ ErrorHandler = (*TUIHandler)(nil)

// NewTUIHandler creates a handler. onAdd, if set, is called after each message is recorded.
func NewTUIHandler(onAdd func(msg Message)) *TUIHandler {
	return &TUIHandler{onAdd: onAdd}
}

func (h *TUIHandler) Error(msg string)   { h.add(msg, MessageTypeError) }
func (h *TUIHandler) Warning(msg string) { h.add(msg, MessageTypeWarning) }
func (h *TUIHandler) Info(msg string)    { h.add(msg, MessageTypeInfo) }
func (h *TUIHandler) Success(msg string) { h.add(msg, MessageTypeSuccess) }

func (h *TUIHandler) add(text string, t MessageType) {
	msg := Message{Text: text, Type: t, Timestamp: time.Now()}
	h.mu.Lock()
	h.messages = append(h.messages, msg)
	onAdd := h.onAdd
	h.mu.Unlock()

	if onAdd != nil {
		onAdd(msg)
	}
}

// Latest returns the most recent message.
func (h *TUIHandler) Latest() (Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.messages) == 0 {
		return Message{}, false
	}
	return h.messages[len(h.messages)-1], true
}

// Clear drops all recorded messages.
func (h *TUIHandler) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
}
