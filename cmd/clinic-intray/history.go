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
	"time"

	"github.com/gestionclinique/clinic-intray/cmd"
	clierrors "github.com/gestionclinique/clinic-intray/internal/errors"
	"github.com/gestionclinique/clinic-intray/internal/history"
	"github.com/spf13/cobra"
)

type historyJournal interface {
	List(ctx context.Context, f history.Filter) ([]history.Event, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

type historyDeps struct {
	journal func() (historyJournal, error)
	out     io.Writer
	now     func() time.Time
	report  clierrors.ErrorHandler
}

// errHistoryDisabled is returned when history_enabled is false.
var errHistoryDisabled = errors.New("history is disabled (history_enabled = false)")

// NewHistoryCmd creates the history command.
func NewHistoryCmd(deps historyDeps) *cobra.Command {
	if deps.journal == nil {
		panic("NewHistoryCmd: journal dependency cannot be nil")
	}
	if deps.now == nil {
		deps.now = time.Now
	}
	report := reporter(deps.report)
	var (
		limit     int
		event     string
		asJSON    bool
		pruneDays int
	)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show what happened to notifications",
		Long: `Show the local journal of notification events: shown, read, closed,
expired and clicked.

USAGE:
    clinic-intray history [OPTIONS]

OPTIONS:
    --limit <n>          Maximum number of events (default: 20)
    --event <kind>       Only events of this kind
    --json               Print JSON
    --prune-days <n>     Delete events older than n days instead of listing
    -h, --help           Show this help`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			journal, err := deps.journal()
			if err != nil {
				return err
			}

			if pruneDays > 0 {
				cutoff := deps.now().Add(-time.Duration(pruneDays) * 24 * time.Hour)
				n, err := journal.Prune(c.Context(), cutoff)
				if err != nil {
					return err
				}
				report.Success(fmt.Sprintf("Removed %d event(s) older than %d day(s)", n, pruneDays))
				return nil
			}

			filter := history.Filter{Limit: limit}
			if event != "" {
				kind, err := history.ParseEventKind(event)
				if err != nil {
					return err
				}
				filter.Kind = kind
			}
			events, err := journal.List(c.Context(), filter)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(deps.out)
				enc.SetIndent("", "  ")
				return enc.Encode(events)
			}
			if len(events) == 0 {
				fmt.Fprintln(deps.out, "No events")
				return nil
			}
			for _, e := range events {
				line := fmt.Sprintf("%s  %-8s %-10s %s", e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Kind, e.Type, e.EntryKey)
				if e.Sender != "" {
					line += "  " + e.Sender
				}
				if e.Preview != "" {
					line += ": " + truncate(e.Preview, 60)
				}
				if e.Destination != "" {
					line += "  -> " + e.Destination
				}
				fmt.Fprintln(deps.out, line)
			}
			return nil
		},
	}
	historyCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of events")
	historyCmd.Flags().StringVar(&event, "event", "", "Only events of this kind")
	historyCmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	historyCmd.Flags().IntVar(&pruneDays, "prune-days", 0, "Delete events older than n days")
	return historyCmd
}

var historyCmd = NewHistoryCmd(historyDeps{
	journal: func() (historyJournal, error) {
		journal, err := svc.History()
		if err != nil {
			return nil, err
		}
		if journal == nil {
			return nil, errHistoryDisabled
		}
		return journal, nil
	},
	out: os.Stdout,
})

func init() {
	cmd.RootCmd.AddCommand(historyCmd)
}
