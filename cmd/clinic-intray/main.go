/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"os"

	"github.com/gestionclinique/clinic-intray/cmd"
	"github.com/gestionclinique/clinic-intray/internal/colors"
)

func main() {
	os.Exit(run(os.Args[1:], cmd.Execute))
}

// run executes the root command with args and returns the exit code.
func run(args []string, execute func() error) int {
	defer svc.Close()
	cmd.RootCmd.SetArgs(args)
	if err := execute(); err != nil {
		colors.Error(err.Error())
		return 1
	}
	return 0
}
