/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/gestionclinique/clinic-intray/cmd"
	"github.com/gestionclinique/clinic-intray/internal/notification"
	"github.com/gestionclinique/clinic-intray/internal/session"
	"github.com/spf13/cobra"
)

type listClient interface {
	FetchUnread(ctx context.Context, userID int64) ([]notification.Notification, error)
	FetchAll(ctx context.Context, userID int64) ([]notification.Notification, error)
}

type listDeps struct {
	client func() (listClient, error)
	store  func() (session.Store, error)
	out    io.Writer
}

const listCommandLong = `List the notifications of the signed-in user.

USAGE:
    clinic-intray list [OPTIONS]

OPTIONS:
    --all       Include read notifications
    --raw       Include notification types the console does not display
    --json      Print JSON instead of a table
    -h, --help  Show this help`

// NewListCmd creates the list command with explicit dependencies.
func NewListCmd(deps listDeps) *cobra.Command {
	if deps.client == nil || deps.store == nil {
		panic("NewListCmd: dependencies cannot be nil")
	}
	var all, raw, asJSON bool

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List unread notifications",
		Long:  listCommandLong,
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			sess, err := currentUser(deps.store)
			if err != nil {
				return err
			}
			client, err := deps.client()
			if err != nil {
				return err
			}

			var items []notification.Notification
			if all {
				items, err = client.FetchAll(c.Context(), sess.UserID)
			} else {
				items, err = client.FetchUnread(c.Context(), sess.UserID)
			}
			if err != nil {
				return err
			}
			if !raw {
				items = notification.FilterDisplayable(items)
			}

			if asJSON {
				enc := json.NewEncoder(deps.out)
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}
			if len(items) == 0 {
				fmt.Fprintln(deps.out, "No notifications")
				return nil
			}
			fmt.Fprintln(deps.out, renderNotificationTable(items))
			return nil
		},
	}
	listCmd.Flags().BoolVar(&all, "all", false, "Include read notifications")
	listCmd.Flags().BoolVar(&raw, "raw", false, "Include non-displayable types")
	listCmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return listCmd
}

// currentUser loads the session and fails when nobody is signed in.
func currentUser(store func() (session.Store, error)) (session.Session, error) {
	s, err := store()
	if err != nil {
		return session.Session{}, err
	}
	sess, err := s.Load()
	if errors.Is(err, session.ErrNoUser) {
		return session.Session{}, errors.New("not signed in, run 'clinic-intray login'")
	}
	return sess, err
}

func renderNotificationTable(items []notification.Notification) string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Headers("ID", "TYPE", "LU", "DE", "APERÇU", "DATE")
	for _, n := range items {
		read := "non"
		if n.Lu {
			read = "oui"
		}
		t.Row(
			strconv.FormatInt(n.ID, 10),
			n.Type.String(),
			read,
			n.SenderName,
			truncate(n.Preview(), 48),
			displayOr(n.TimeAgo, n.DateCreation),
		)
	}
	return t.String()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

var listCmd = NewListCmd(listDeps{
	client: func() (listClient, error) { return svc.API() },
	store:  svc.Session,
	out:    os.Stdout,
})

func init() {
	cmd.RootCmd.AddCommand(listCmd)
}
