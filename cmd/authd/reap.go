// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/holomush/authd/internal/auth"
	"github.com/holomush/authd/internal/auth/postgres"
	"github.com/holomush/authd/internal/config"
)

// NewReapCmd creates the reap subcommand. A nil deps uses the defaults.
func NewReapCmd(root *rootOptions, deps *ServeDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Delete expired sessions once and exit",
		Long: `Run a single expired session sweep. Useful from cron when the
server runs with a long reap interval.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}
			deleted, err := runReap(cmd.Context(), cfg, deps)
			if err != nil {
				return err
			}
			cmd.Printf("Deleted %d expired session(s)\n", deleted)
			return nil
		},
	}
}

func runReap(ctx context.Context, cfg *config.Config, deps *ServeDeps) (int64, error) {
	deps = deps.withDefaults()

	logger, err := newLogger(cfg, deps)
	if err != nil {
		return 0, err
	}

	db, err := connect(ctx, cfg, deps)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	sessions, err := auth.NewSessionStore(postgres.NewSessionRepository(db), cfg.Session.InactivityTTL, logger)
	if err != nil {
		return 0, err
	}
	reaper, err := auth.NewReaper(sessions, cfg.ReapInterval(), logger)
	if err != nil {
		return 0, err
	}
	return reaper.RunOnce(ctx)
}
