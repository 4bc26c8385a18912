/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gestionclinique/clinic-intray/cmd"
	clierrors "github.com/gestionclinique/clinic-intray/internal/errors"
	"github.com/spf13/cobra"
)

type markReadClient interface {
	MarkRead(ctx context.Context, id int64) error
}

// NewMarkReadCmd creates the mark-read command with explicit dependencies.
// report defaults to the coloured console handler.
func NewMarkReadCmd(client func() (markReadClient, error), report clierrors.ErrorHandler) *cobra.Command {
	if client == nil {
		panic("NewMarkReadCmd: client dependency cannot be nil")
	}
	report = reporter(report)

	markReadCmd := &cobra.Command{
		Use:   "mark-read <id>...",
		Short: "Mark notifications as read",
		Long: `Mark one or more notifications as read by ID.

USAGE:
    clinic-intray mark-read <id>...

OPTIONS:
    -h, --help           Show this help`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("mark-read: invalid notification id %q", arg)
				}
				ids = append(ids, id)
			}
			cl, err := client()
			if err != nil {
				return err
			}
			for _, id := range ids {
				if err := cl.MarkRead(c.Context(), id); err != nil {
					return fmt.Errorf("mark-read: %w", err)
				}
				report.Success(fmt.Sprintf("Notification %d marked as read", id))
			}
			return nil
		},
	}

	return markReadCmd
}

var markReadCmd = NewMarkReadCmd(func() (markReadClient, error) { return svc.API() }, nil)

func init() {
	cmd.RootCmd.AddCommand(markReadCmd)
}
