/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/gestionclinique/clinic-intray/cmd"
	"github.com/gestionclinique/clinic-intray/internal/api"
	clierrors "github.com/gestionclinique/clinic-intray/internal/errors"
	"github.com/gestionclinique/clinic-intray/internal/route"
	"github.com/gestionclinique/clinic-intray/internal/session"
	"github.com/spf13/cobra"
)

type loginClient interface {
	Login(ctx context.Context, username, password string) (api.LoginResponse, error)
}

// credentialsPrompt fills in whichever of username and password is empty.
type credentialsPrompt func(username, password *string) error

type loginDeps struct {
	client func() (loginClient, error)
	store  func() (session.Store, error)
	prompt credentialsPrompt
	report clierrors.ErrorHandler
}

// promptCredentials asks for the missing credentials with a huh form.
func promptCredentials(username, password *string) error {
	var fields []huh.Field
	if *username == "" {
		fields = append(fields, huh.NewInput().
			Title("Nom d'utilisateur").
			Value(username).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("username is required")
				}
				return nil
			}))
	}
	if *password == "" {
		fields = append(fields, huh.NewInput().
			Title("Mot de passe").
			EchoMode(huh.EchoModePassword).
			Value(password))
	}
	if len(fields) == 0 {
		return nil
	}
	return huh.NewForm(huh.NewGroup(fields...)).Run()
}

// NewLoginCmd creates the login command with explicit dependencies.
func NewLoginCmd(deps loginDeps) *cobra.Command {
	if deps.client == nil || deps.store == nil {
		panic("NewLoginCmd: dependencies cannot be nil")
	}
	report := reporter(deps.report)
	var username, password string

	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the clinic backend",
		Long: `Sign in to the clinic backend and store the session.

USAGE:
    clinic-intray login [OPTIONS]

OPTIONS:
    -u, --username <name>   Username (prompted when missing)
    -p, --password <pass>   Password (prompted when missing)
    -h, --help              Show this help`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			if (username == "" || password == "") && deps.prompt != nil {
				if err := deps.prompt(&username, &password); err != nil {
					return fmt.Errorf("login: %w", err)
				}
			}
			if username == "" || password == "" {
				return errors.New("login: username and password are required")
			}

			client, err := deps.client()
			if err != nil {
				return err
			}
			store, err := deps.store()
			if err != nil {
				return err
			}
			resp, err := client.Login(c.Context(), username, password)
			if err != nil {
				if errors.Is(err, api.ErrUnauthorized) {
					return errors.New("login: invalid username or password")
				}
				return err
			}

			sess := session.Session{
				Token:    resp.Token,
				UserID:   resp.ID,
				Role:     route.EncodeRole(route.Role(resp.PrimaryRole())),
				Username: resp.Username,
			}
			if err := store.Save(sess); err != nil {
				return fmt.Errorf("login: save session: %w", err)
			}
			report.Success(fmt.Sprintf("Signed in as %s (%s)", resp.Username, resp.PrimaryRole()))
			return nil
		},
	}
	loginCmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	loginCmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	return loginCmd
}

var loginCmd = NewLoginCmd(loginDeps{
	client: func() (loginClient, error) { return svc.API() },
	store:  svc.Session,
	prompt: promptCredentials,
})

func init() {
	cmd.RootCmd.AddCommand(loginCmd)
}
