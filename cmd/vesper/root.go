package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the vesper CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vesper",
		Short: "vesper - a command-dispatch chat bot",
		Long: `vesper is a command-dispatch chat bot whose commands live in Lua
plugins discovered from a directory tree at startup.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewPluginsCmd())

	return cmd
}
