// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/authd/internal/store"
)

func TestMigrator_FullCycle(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx) //nolint:errcheck // test teardown

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	migrator, err := store.NewMigrator(connStr)
	require.NoError(t, err)
	defer migrator.Close() //nolint:errcheck // test teardown

	st, err := migrator.Status()
	require.NoError(t, err)
	assert.Zero(t, st.Version)
	assert.Equal(t, []uint{1, 2}, st.Pending)

	require.NoError(t, migrator.Up())
	st, err = migrator.Status()
	require.NoError(t, err)
	assert.Equal(t, uint(2), st.Version)
	assert.False(t, st.Dirty)
	assert.Empty(t, st.Pending)

	pool, err := store.Connect(ctx, connStr, store.PoolConfig{MaxConns: 2})
	require.NoError(t, err)
	defer pool.Close()
	assert.True(t, store.Ready(ctx, pool, time.Second))

	var tables int
	require.NoError(t, pool.QueryRow(ctx, `
		SELECT count(*) FROM information_schema.tables
		WHERE table_name IN ('users', 'sessions')`).Scan(&tables))
	assert.Equal(t, 2, tables)

	require.NoError(t, migrator.Steps(-1))
	v, _, err := migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)

	require.NoError(t, migrator.Down())
	v, _, err = migrator.Version()
	require.NoError(t, err)
	assert.Zero(t, v)
}
