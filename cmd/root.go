/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gestionclinique/clinic-intray/internal/colors"
	"github.com/gestionclinique/clinic-intray/internal/config"
	"github.com/gestionclinique/clinic-intray/internal/logging"
	"github.com/gestionclinique/clinic-intray/internal/version"
	"github.com/spf13/cobra"
)

var (
	debugFlag   bool
	apiBaseFlag string
	wsURLFlag   string
)

// helpOutputWriter is where the help text goes. Tests replace it.
var helpOutputWriter io.Writer = os.Stdout

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "clinic-intray",
	Short: "Clinic notifications in your terminal.",
	Long: `Clinic notifications in your terminal.

Lists unread notifications of the clinic backend, follows new chat messages
in real time and keeps a local history of what you opened or dismissed.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.ShutdownGlobal()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.Version = version.String()

	// Hide the completion command
	RootCmd.CompletionOptions.HiddenDefaultCmd = true

	RootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != RootCmd {
			fmt.Fprintln(helpOutputWriter, cmd.Long)
			return
		}
		printHelpText(cmd)
	})

	RootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug output")
	RootCmd.PersistentFlags().StringVar(&apiBaseFlag, "api", "", "Backend REST base URL (overrides api_base)")
	RootCmd.PersistentFlags().StringVar(&wsURLFlag, "ws", "", "Realtime WebSocket URL (overrides ws_url)")
}

// setup loads configuration, applies global flags and starts logging.
func setup(cmd *cobra.Command, args []string) error {
	config.Load()
	if debugFlag {
		config.Set("debug", "true")
	}
	if apiBaseFlag != "" {
		config.Set("api_base", apiBaseFlag)
	}
	if wsURLFlag != "" {
		config.Set("ws_url", wsURLFlag)
	}
	colors.SetDebug(config.GetBool("debug", false))

	if err := logging.InitGlobal(); err != nil {
		colors.Warning(fmt.Sprintf("logging disabled: %v", err))
	}
	logging.Debug("command started", "command", cmd.Name())
	return nil
}

func printHelpText(cmd *cobra.Command) {
	commandOrder := []string{
		"login",
		"logout",
		"whoami",
		"list",
		"mark-read",
		"watch",
		"follow",
		"history",
		"serve-dev",
		"version",
	}

	var cmdLines []string
	for _, name := range commandOrder {
		var found *cobra.Command
		for _, c := range cmd.Commands() {
			if c.Name() == name {
				found = c
				break
			}
		}
		if found == nil {
			continue
		}
		cmdLines = append(cmdLines, fmt.Sprintf("    %-16s %s", found.Name(), found.Short))
	}

	helpText := fmt.Sprintf(`clinic-intray v%s

Clinic notifications in your terminal.

USAGE:
    clinic-intray [COMMAND] [OPTIONS]

COMMANDS:
%s

OPTIONS:
    --api <url>     Backend REST base URL
    --ws <url>      Realtime WebSocket URL
    --debug         Enable debug output
    -h, --help      Show help message
`, version.String(), strings.Join(cmdLines, "\n"))
	fmt.Fprint(helpOutputWriter, helpText)
}
