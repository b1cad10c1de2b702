// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"io"
	"os"

	"github.com/holomush/authd/internal/auth/postgres"
	"github.com/holomush/authd/internal/store"
)

// Database is the connection pool used by serve and reap.
// *pgxpool.Pool satisfies it.
type Database interface {
	postgres.DB
	store.Pinger
	Close()
}

// ServeDeps contains injectable dependencies for the serve and reap commands.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// Connect opens the database pool.
	// Default: store.Connect
	Connect func(ctx context.Context, databaseURL string, cfg store.PoolConfig) (Database, error)

	// Migrate applies pending schema migrations.
	// Default: migrateUp
	Migrate func(databaseURL string) error

	// LogOutput receives structured logs.
	// Default: os.Stderr
	LogOutput io.Writer

	// Ready is called once both listeners are bound. metricsAddr is empty
	// when the observability server is disabled.
	Ready func(apiAddr, metricsAddr string)
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.Connect == nil {
		out.Connect = func(ctx context.Context, databaseURL string, cfg store.PoolConfig) (Database, error) {
			pool, err := store.Connect(ctx, databaseURL, cfg)
			if err != nil {
				return nil, err
			}
			return pool, nil
		}
	}
	if out.Migrate == nil {
		out.Migrate = migrateUp
	}
	if out.LogOutput == nil {
		out.LogOutput = os.Stderr
	}
	if out.Ready == nil {
		out.Ready = func(string, string) {}
	}
	return &out
}
