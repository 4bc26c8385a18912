package app

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

type pingMsg struct{}

func TestNotifierDropsWhenFull(t *testing.T) {
	n := NewNotifier(2)
	listener := n.Func(pingMsg{})

	listener()
	assert.True(t, n.Notify(pingMsg{}))
	assert.False(t, n.Notify(pingMsg{}))

	var got []tea.Msg
	for len(n.Updates()) > 0 {
		got = append(got, <-n.Updates())
	}
	assert.Len(t, got, 2)
}

func TestNotifierMinimumSize(t *testing.T) {
	n := NewNotifier(0)
	assert.True(t, n.Notify(pingMsg{}))
	assert.False(t, n.Notify(pingMsg{}))
}
