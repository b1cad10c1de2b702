// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package postgres_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authd/internal/auth"
	"github.com/holomush/authd/internal/auth/postgres"
)

func resetDB(t *testing.T) {
	t.Helper()
	require.NoError(t, testDB.Truncate(context.Background()))
}

func TestUserRepository_Integration(t *testing.T) {
	ctx := context.Background()
	resetDB(t)
	repo := postgres.NewUserRepository(testDB.Pool)

	user, err := repo.Insert(ctx, "Ann", "Lee", "ann@x.io", "$argon2id$h")
	require.NoError(t, err)
	assert.Positive(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	exists, err := repo.EmailExists(ctx, "ann@x.io")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.EmailExists(ctx, "ANN@x.io")
	require.NoError(t, err)
	assert.False(t, exists, "email comparison is case-sensitive")

	found, err := repo.FindByEmail(ctx, "ann@x.io")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, "$argon2id$h", found.PasswordHash)

	_, err = repo.FindByEmail(ctx, "bob@x.io")
	assert.ErrorIs(t, err, auth.ErrNotFound)

	_, err = repo.Insert(ctx, "Ann", "Other", "ann@x.io", "$argon2id$h2")
	assert.ErrorIs(t, err, auth.ErrConflict)
}

func TestUserRepository_ConcurrentInsertSingleWinner(t *testing.T) {
	ctx := context.Background()
	resetDB(t)
	repo := postgres.NewUserRepository(testDB.Pool)

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Insert(ctx, "Ann", "Lee", "race@x.io", "$argon2id$h")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case assert.ErrorIs(t, err, auth.ErrConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
}

func TestSessionStore_Integration(t *testing.T) {
	ctx := context.Background()
	resetDB(t)

	t0 := time.Now().UTC().Truncate(time.Microsecond)
	now := t0
	clock := func() time.Time { return now }

	store, err := auth.NewSessionStore(
		postgres.NewSessionRepository(testDB.Pool),
		time.Hour,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		auth.WithClock(clock),
	)
	require.NoError(t, err)

	token, err := store.Create(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, token, "a", 1))
	require.NoError(t, store.Set(ctx, token, "b", map[string]string{"x": "y"}))
	require.NoError(t, store.Set(ctx, token, "a", 2))

	attrs, err := store.Get(ctx, token)
	require.NoError(t, err)
	assert.JSONEq(t, `2`, string(attrs["a"]))
	assert.JSONEq(t, `{"x":"y"}`, string(attrs["b"]))

	t.Run("activity slides expiry", func(t *testing.T) {
		now = t0.Add(50 * time.Minute)
		_, err := store.Get(ctx, token)
		require.NoError(t, err)

		now = t0.Add(100 * time.Minute)
		_, err = store.Get(ctx, token)
		require.NoError(t, err, "session touched at +50m lives until +110m")
	})

	t.Run("expired session is rejected before reaping and removed after", func(t *testing.T) {
		now = t0.Add(100*time.Minute + time.Hour + time.Second)

		_, err := store.Get(ctx, token)
		assert.ErrorIs(t, err, auth.ErrSessionNotFound)
		assert.ErrorIs(t, store.Set(ctx, token, "a", 3), auth.ErrSessionNotFound)

		var count int
		require.NoError(t, testDB.Pool.QueryRow(ctx, `SELECT count(*) FROM sessions`).Scan(&count))
		assert.Equal(t, 1, count, "record remains until reaped")

		n, err := store.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		require.NoError(t, testDB.Pool.QueryRow(ctx, `SELECT count(*) FROM sessions`).Scan(&count))
		assert.Zero(t, count)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		now = t0
		tok, err := store.Create(ctx, auth.Attributes{"k": json.RawMessage(`true`)})
		require.NoError(t, err)
		require.NoError(t, store.Delete(ctx, tok))
		require.NoError(t, store.Delete(ctx, tok))
		_, err = store.Get(ctx, tok)
		assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	})
}
