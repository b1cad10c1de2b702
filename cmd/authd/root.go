// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/authd/internal/config"
)

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configFile string
}

// flagKeys maps command-line flags onto configuration keys. Flags a
// subcommand does not define are ignored.
var flagKeys = map[string]string{
	"env":          "env",
	"listen":       "server.addr",
	"database-url": "database.url",
	"log-format":   "log.format",
	"log-level":    "log.level",
	"metrics-addr": "metrics.addr",
}

// NewRootCmd creates the root command for the authd CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "authd",
		Short: "authd - user accounts and cookie sessions over HTTP",
		Long: `authd registers users, verifies their passwords and keeps them
signed in with server-side sessions stored in PostgreSQL.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file path (YAML)")
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection URL (overrides DATABASE_URL)")

	cmd.AddCommand(NewServeCmd(opts, nil))
	cmd.AddCommand(NewMigrateCmd(opts))
	cmd.AddCommand(NewReapCmd(opts, nil))
	cmd.AddCommand(NewConfigCmd(opts))

	return cmd
}

// loadConfig resolves and validates the configuration for cmd.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(config.Sources{
		File:     opts.configFile,
		Flags:    cmd.Flags(),
		FlagKeys: flagKeys,
	})
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
