/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gestionclinique/clinic-intray/cmd"
	"github.com/gestionclinique/clinic-intray/internal/route"
	"github.com/gestionclinique/clinic-intray/internal/surface"
	"github.com/spf13/cobra"
)

// snapshotSource is what follow reads from the global surface.
type snapshotSource interface {
	Snapshot() surface.Snapshot
	Subscribe(fn func()) (unsubscribe func())
}

// FollowOptions holds all parameters for following the surface.
type FollowOptions struct {
	Output io.Writer
	// Changes replaces the surface subscription; tests drive it directly.
	Changes <-chan struct{}
}

// Follow prints entries as they enter the surface and connection state
// changes until ctx is cancelled.
func Follow(ctx context.Context, src snapshotSource, opts FollowOptions) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	changes := opts.Changes
	if changes == nil {
		ch := make(chan struct{}, 1)
		unsubscribe := src.Subscribe(func() {
			select {
			case ch <- struct{}{}:
			default:
			}
		})
		defer unsubscribe()
		changes = ch
	}

	seen := make(map[string]bool)
	connected := false
	emit := func() {
		snap := src.Snapshot()
		if snap.Connected != connected {
			connected = snap.Connected
			if connected {
				fmt.Fprintf(out, "-- connected (route %s)\n", snap.Route)
			} else {
				fmt.Fprintf(out, "-- disconnected (route %s)\n", snap.Route)
			}
		}
		// Entries are most recent first; print oldest first.
		for i := len(snap.Entries) - 1; i >= 0; i-- {
			e := snap.Entries[i]
			if seen[e.Key] {
				continue
			}
			seen[e.Key] = true
			fmt.Fprintln(out, formatEntryLine(e))
		}
	}

	emit()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			emit()
		}
	}
}

func formatEntryLine(e surface.Entry) string {
	stamp := e.TimeAgo
	if e.Temporary {
		stamp = e.CreatedAt.Format(time.TimeOnly)
	}
	kind := "persisted"
	if e.Temporary {
		kind = "live"
	}
	sender := e.SenderName
	if sender == "" {
		sender = surface.UnknownSender
	}
	return fmt.Sprintf("[%s] %-9s %s | %s: %s", displayOr(stamp, "-"), kind, e.Title(), sender, e.Preview)
}

type followDeps struct {
	build func() (consoleDeps, error)
	out   io.Writer
}

// NewFollowCmd creates the follow command.
func NewFollowCmd(deps followDeps) *cobra.Command {
	if deps.build == nil {
		panic("NewFollowCmd: dependencies cannot be nil")
	}
	var initialRoute string

	followCmd := &cobra.Command{
		Use:   "follow",
		Short: "Stream notifications to the terminal",
		Long: `Stream notifications to the terminal without the interactive console.

USAGE:
    clinic-intray follow [OPTIONS]

OPTIONS:
    --route <path>   Route to follow (default: /dashboard). On a chat route
                     the chat surface owns the connection and nothing new
                     is printed.
    -h, --help       Show this help`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			cd, err := deps.build()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cd.Report == nil {
				cd.Report = reporter(nil)
			}
			con := newConsole(ctx, cd, initialRoute)
			defer con.close()
			Follow(ctx, con.global, FollowOptions{Output: deps.out})
			return nil
		},
	}
	followCmd.Flags().StringVar(&initialRoute, "route", route.DashboardPath, "Route to follow")
	return followCmd
}

var followCmd = NewFollowCmd(followDeps{build: buildConsoleDeps, out: os.Stdout})

func init() {
	cmd.RootCmd.AddCommand(followCmd)
}
