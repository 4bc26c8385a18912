// Package render turns console state into styled strings.
package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/gestionclinique/clinic-intray/internal/colors"
	"github.com/gestionclinique/clinic-intray/internal/notification"
	"github.com/gestionclinique/clinic-intray/internal/surface"
	"github.com/gestionclinique/clinic-intray/internal/toast"
)

const (
	defaultWidth = 80
	minCardWidth = 30
	ellipsis     = "..."
)

// HeaderState defines the inputs of the status header.
type HeaderState struct {
	Route     string
	ChatRoute bool
	Connected bool
	Unread    int
	Width     int
}

// Header renders the one-line status header.
func Header(state HeaderState) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ansiColorNumber(colors.Blue)))

	link := "○ hors ligne"
	linkColor := ansiColorNumber(colors.Red)
	switch {
	case state.ChatRoute:
		link, linkColor = "◌ chat actif", "241"
	case state.Connected:
		link, linkColor = "● en ligne", ansiColorNumber(colors.Green)
	}

	info := truncate(fmt.Sprintf("route %s  ·  %s  ·  %d non lue(s)", state.Route, link, state.Unread),
		widthOr(state.Width)-len("clinic-intray  ·  "))
	return titleStyle.Render("clinic-intray") + "  ·  " +
		lipgloss.NewStyle().Foreground(lipgloss.Color(linkColor)).Render(info)
}

// EntryState defines the inputs needed to render one notification card.
type EntryState struct {
	Entry    surface.Entry
	Selected bool
	Width    int
}

// Entry renders one notification as a bordered card.
func Entry(state EntryState) string {
	width := max(widthOr(state.Width)-4, minCardWidth)
	e := state.Entry

	border := lipgloss.Color("241")
	if state.Selected {
		border = lipgloss.Color(ansiColorNumber(colors.Blue))
	}
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(width)

	inner := width - 2
	lines := []string{lipgloss.NewStyle().Bold(true).Render(truncate(typeIcon(e)+" "+e.Title(), inner))}
	if e.SenderName != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render(truncate(e.SenderName, inner)))
	}
	lines = append(lines, truncate(e.Preview, inner))

	meta := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(e.TimeAgo)
	if e.Temporary {
		meta += "  " + lipgloss.NewStyle().Foreground(lipgloss.Color(ansiColorNumber(colors.Yellow))).Render("nouveau")
	}
	lines = append(lines, meta)

	return card.Render(strings.Join(lines, "\n"))
}

// Entries renders every card, separated by newlines.
func Entries(entries []surface.Entry, cursor, width int) string {
	cards := make([]string, 0, len(entries))
	for i, e := range entries {
		cards = append(cards, Entry(EntryState{Entry: e, Selected: i == cursor, Width: width}))
	}
	return strings.Join(cards, "\n")
}

// Toast renders one toast line.
func Toast(t toast.Toast, width int) string {
	style := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch t.Kind {
	case toast.KindSuccess:
		style = style.Foreground(lipgloss.Color(ansiColorNumber(colors.Green)))
	case toast.KindError:
		style = style.Foreground(lipgloss.Color(ansiColorNumber(colors.Red)))
	case toast.KindWarning:
		style = style.Foreground(lipgloss.Color(ansiColorNumber(colors.Yellow)))
	default:
		style = style.Foreground(lipgloss.Color(ansiColorNumber(colors.Cyan)))
	}
	if t.Leaving {
		style = style.Faint(true)
	}
	return style.Render(truncate(kindIcon(t.Kind)+" "+t.Message, widthOr(width)-2))
}

// FooterState defines the inputs needed to render footer help text.
type FooterState struct {
	RouteMode    bool
	RouteInput   string
	Width        int
	ErrorMessage string
}

// Footer renders the help line and any status message.
func Footer(state FooterState) string {
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	var help []string
	if state.RouteMode {
		help = append(help, "Route: "+state.RouteInput, "Enter: go", "ESC: cancel")
	} else {
		help = append(help, "j/k: move", "Enter: open", "x: close", "r: route", "t: dismiss toast", "q: quit")
	}
	out := helpStyle.Render(truncate(strings.Join(help, "  "), widthOr(state.Width)))
	if state.ErrorMessage != "" {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ansiColorNumber(colors.Red)))
		out += "\n" + errStyle.Render(truncate(state.ErrorMessage, widthOr(state.Width)))
	}
	return out
}

// Placeholder renders the message shown when there is nothing to list.
func Placeholder(snap surface.Snapshot) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(1, 2)
	switch {
	case snap.Phase == surface.PhaseLoading:
		return style.Render("Chargement des notifications...")
	case !snap.HasUser:
		return style.Render("Aucun utilisateur connecté. Lancez `clinic-intray login`.")
	case len(snap.Entries) == 0:
		return style.Render("Aucune notification.")
	default:
		return ""
	}
}

func typeIcon(e surface.Entry) string {
	switch {
	case e.Temporary:
		return "✉"
	case e.Type == notification.TypeRendezVous:
		return "📅"
	default:
		return "💬"
	}
}

func kindIcon(k toast.Kind) string {
	switch k {
	case toast.KindSuccess:
		return "✓"
	case toast.KindError:
		return "✗"
	case toast.KindWarning:
		return "!"
	default:
		return "i"
	}
}

func widthOr(w int) int {
	if w <= 0 {
		return defaultWidth
	}
	return w
}

func truncate(s string, width int) string {
	if width <= 0 || utf8.RuneCountInString(s) <= width {
		return s
	}
	if width <= len(ellipsis) {
		return string([]rune(s)[:width])
	}
	return string([]rune(s)[:width-len(ellipsis)]) + ellipsis
}

// ansiColorNumber extracts the color number from an ANSI escape sequence.
func ansiColorNumber(ansi string) string {
	if len(ansi) < 2 {
		return ""
	}
	lastSemicolon := strings.LastIndex(ansi, ";")
	if lastSemicolon == -1 {
		return ""
	}
	return ansi[lastSemicolon+1 : len(ansi)-1]
}
