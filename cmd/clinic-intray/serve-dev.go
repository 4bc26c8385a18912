/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gestionclinique/clinic-intray/cmd"
	"github.com/gestionclinique/clinic-intray/internal/colors"
	"github.com/gestionclinique/clinic-intray/internal/config"
	"github.com/gestionclinique/clinic-intray/internal/devserver"
	"github.com/gestionclinique/clinic-intray/internal/logging"
	"github.com/spf13/cobra"
)

// devServer is what serve-dev runs.
type devServer interface {
	SeedDemo()
	RunDemo(ctx context.Context, interval time.Duration)
	ListenAndServe(ctx context.Context) error
}

// NewServeDevCmd creates the serve-dev command. newServer builds the server
// for the resolved configuration.
func NewServeDevCmd(newServer func(devserver.Config) (devServer, error)) *cobra.Command {
	if newServer == nil {
		panic("NewServeDevCmd: server factory cannot be nil")
	}
	var (
		addr         string
		demoInterval time.Duration
		empty        bool
	)

	serveCmd := &cobra.Command{
		Use:   "serve-dev",
		Short: "Run a local stand-in for the clinic backend",
		Long: `Run a local stand-in for the clinic backend: login, notification
endpoints and the realtime WebSocket, with seeded users admin, medecin and
secretaire (password = username).

USAGE:
    clinic-intray serve-dev [OPTIONS]

OPTIONS:
    --addr <host:port>       Listen address (default: dev_addr)
    --demo-interval <dur>    Push a demo chat message to connected users at
                             this interval; 0 disables (default: 0)
    --empty                  Start without seeded notifications
    -h, --help               Show this help`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			if addr == "" {
				addr = config.Get("dev_addr", "127.0.0.1:2025")
			}
			srv, err := newServer(devserver.Config{
				Addr:      addr,
				JWTSecret: config.Get("dev_jwt_secret", ""),
				Logger:    logging.With("component", "devserver"),
			})
			if err != nil {
				return err
			}
			if !empty {
				srv.SeedDemo()
			}

			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if demoInterval > 0 {
				go srv.RunDemo(ctx, demoInterval)
			}
			colors.Info(fmt.Sprintf("Dev backend on http://%s%s (WebSocket ws://%s%s)",
				addr, devserver.APIPrefix, addr, devserver.WebSocketPath))
			return srv.ListenAndServe(ctx)
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address")
	serveCmd.Flags().DurationVar(&demoInterval, "demo-interval", 0, "Demo message interval")
	serveCmd.Flags().BoolVar(&empty, "empty", false, "Start without seeded notifications")
	return serveCmd
}

var serveDevCmd = NewServeDevCmd(func(cfg devserver.Config) (devServer, error) {
	return devserver.New(cfg)
})

func init() {
	cmd.RootCmd.AddCommand(serveDevCmd)
}
