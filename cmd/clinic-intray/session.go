/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gestionclinique/clinic-intray/cmd"
	clierrors "github.com/gestionclinique/clinic-intray/internal/errors"
	"github.com/gestionclinique/clinic-intray/internal/session"
	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command. report defaults to the coloured
// console handler.
func NewLogoutCmd(store func() (session.Store, error), report clierrors.ErrorHandler) *cobra.Command {
	if store == nil {
		panic("NewLogoutCmd: store dependency cannot be nil")
	}
	report = reporter(report)
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Long: `Forget the stored session.

USAGE:
    clinic-intray logout`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			s, err := store()
			if err != nil {
				return err
			}
			if err := s.Clear(); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			report.Success("Signed out")
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami command. now is used to report token expiry.
func NewWhoamiCmd(store func() (session.Store, error), out io.Writer, now func() time.Time, report clierrors.ErrorHandler) *cobra.Command {
	if store == nil {
		panic("NewWhoamiCmd: store dependency cannot be nil")
	}
	report = reporter(report)
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Long: `Show the signed-in user, role and token validity.

USAGE:
    clinic-intray whoami`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			s, err := store()
			if err != nil {
				return err
			}
			sess, err := s.Load()
			if errors.Is(err, session.ErrNoUser) {
				return errors.New("not signed in, run 'clinic-intray login'")
			}
			if err != nil {
				return err
			}
			role, err := sess.ParsedRole()
			if err != nil {
				report.Warning(fmt.Sprintf("stored role is malformed: %v", err))
			}

			fmt.Fprintf(out, "User:     %s (id %s)\n", sess.Username, sess.UserIDString())
			fmt.Fprintf(out, "Role:     %s\n", displayOr(string(role), "-"))
			if sess.Token == "" {
				fmt.Fprintln(out, "Token:    none")
				return nil
			}
			claims, err := session.InspectToken(sess.Token)
			if err != nil {
				fmt.Fprintln(out, "Token:    unreadable")
				return nil
			}
			switch {
			case claims.ExpiresAt.IsZero():
				fmt.Fprintln(out, "Token:    valid (no expiry)")
			case claims.Expired(now()):
				fmt.Fprintf(out, "Token:    expired at %s\n", claims.ExpiresAt.UTC().Format(time.RFC3339))
			default:
				fmt.Fprintf(out, "Token:    valid until %s\n", claims.ExpiresAt.UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
}

func displayOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

var (
	logoutCmd = NewLogoutCmd(svc.Session, nil)
	whoamiCmd = NewWhoamiCmd(svc.Session, os.Stdout, time.Now, nil)
)

func init() {
	cmd.RootCmd.AddCommand(logoutCmd)
	cmd.RootCmd.AddCommand(whoamiCmd)
}
