/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"github.com/gestionclinique/clinic-intray/cmd"
	"github.com/gestionclinique/clinic-intray/internal/errors"
	"github.com/gestionclinique/clinic-intray/internal/route"
	"github.com/gestionclinique/clinic-intray/internal/tui/app"
	"github.com/gestionclinique/clinic-intray/internal/tui/state"
	"github.com/spf13/cobra"
)

const notifierBuffer = 64

type watchDeps struct {
	build  func() (consoleDeps, error)
	runner app.ProgramRunner
}

// NewWatchCmd creates the interactive console command.
func NewWatchCmd(deps watchDeps) *cobra.Command {
	if deps.build == nil || deps.runner == nil {
		panic("NewWatchCmd: dependencies cannot be nil")
	}
	var initialRoute string

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Open the interactive notification console",
		Long: `Open the interactive notification console.

The console lists unread notifications and shows new chat messages as
temporary entries while the current route is not a chat page.

USAGE:
    clinic-intray watch [OPTIONS]

OPTIONS:
    --route <path>   Initial route (default: /dashboard)
    -h, --help       Show this help

KEYS:
    j/k        Move the selection
    enter      Open the selected notification
    x          Close the selected notification
    r          Type a route
    t          Dismiss the newest toast
    q          Quit`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			cd, err := deps.build()
			if err != nil {
				return err
			}
			notifier := app.NewNotifier(notifierBuffer)
			status := errors.NewTUIHandler(func(msg errors.Message) {
				notifier.Notify(state.StatusMsg{Message: msg})
			})
			cd.Report = status
			con := newConsole(c.Context(), cd, initialRoute)
			defer con.close()

			unsubSurface := con.global.Subscribe(notifier.Func(state.SurfaceChangedMsg{}))
			defer unsubSurface()
			unsubToasts := con.toasts.Subscribe(notifier.Func(state.ToastsChangedMsg{}))
			defer unsubToasts()

			model := state.NewModel(state.Deps{
				Surface:      con.global,
				Toasts:       con.toasts,
				Publisher:    con.publisher,
				Navigator:    con.tracker,
				Updates:      notifier.Updates(),
				ErrorHandler: status,
			}, nil)
			return deps.runner.Run(model)
		},
	}
	watchCmd.Flags().StringVar(&initialRoute, "route", route.DashboardPath, "Initial route")
	return watchCmd
}

var watchCmd = NewWatchCmd(watchDeps{
	build:  buildConsoleDeps,
	runner: app.NewDefaultProgramRunner(),
})

func init() {
	cmd.RootCmd.AddCommand(watchCmd)
}
