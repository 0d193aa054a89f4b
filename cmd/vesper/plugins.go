// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vesper Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/vesperbot/vesper/internal/client"
	"github.com/vesperbot/vesper/internal/plugin"
	pluginlua "github.com/vesperbot/vesper/internal/plugin/lua"
)

// NewPluginsCmd creates the plugins subcommand.
func NewPluginsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Inspect plugins without starting the bot",
	}
	cmd.AddCommand(newPluginsListCmd())
	return cmd
}

func newPluginsListCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Discover and load plugins, printing their declared surface",
		RunE: func(cmd *cobra.Command, _ []string) error {
			scanner, err := plugin.NewScanner(dir)
			if err != nil {
				return err
			}
			mgr := plugin.NewManager(nopClient{}, pluginlua.NewHost(), scanner)

			active, err := mgr.RegisterAll(cmd.Context())
			if err != nil {
				return err
			}

			for _, p := range active {
				version := p.Version
				if version == "" {
					version = "-"
				}
				cmd.Printf("%s (%s, version %s)\n", p.RelativePath(), orDash(p.Name), version)
				for _, cb := range p.Callbacks {
					visibility := "public"
					if cb.Private {
						visibility = "private"
					}
					cmd.Printf("  %s [%s] %s\n", cb.Name, visibility, cb.Help)
				}
			}
			cmd.Printf("%d plugins\n", len(active))
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "./plugins", "plugin root directory")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// nopClient discards handler registrations; list only needs the records.
type nopClient struct{}

func (nopClient) AddEventHandler(*client.Handler)    {}
func (nopClient) RemoveEventHandler(*client.Handler) {}
