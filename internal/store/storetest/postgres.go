// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

// Package storetest starts a migrated PostgreSQL container for integration tests.
package storetest

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/authd/internal/store"
)

// Database is a running, migrated test database.
type Database struct {
	ConnString string
	Pool       *pgxpool.Pool

	container *postgres.PostgresContainer
}

// Start launches postgres:16-alpine and applies all migrations.
func Start(ctx context.Context) (*Database, error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("authd_test"),
		postgres.WithUsername("authd"),
		postgres.WithPassword("authd"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, oops.With("operation", "start postgres container").Wrap(err)
	}

	db := &Database{container: container}

	db.ConnString, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		db.Terminate(ctx)
		return nil, oops.With("operation", "get connection string").Wrap(err)
	}

	migrator, err := store.NewMigrator(db.ConnString)
	if err != nil {
		db.Terminate(ctx)
		return nil, err
	}
	upErr := migrator.Up()
	_ = migrator.Close() //nolint:errcheck // migration result takes precedence
	if upErr != nil {
		db.Terminate(ctx)
		return nil, upErr
	}

	db.Pool, err = store.Connect(ctx, db.ConnString, store.PoolConfig{})
	if err != nil {
		db.Terminate(ctx)
		return nil, err
	}
	return db, nil
}

// Truncate empties every table.
func (db *Database) Truncate(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `TRUNCATE users, sessions RESTART IDENTITY`)
	return err
}

// Terminate closes the pool and removes the container.
func (db *Database) Terminate(ctx context.Context) {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.container != nil {
		_ = db.container.Terminate(ctx) //nolint:errcheck // best effort teardown
	}
}
