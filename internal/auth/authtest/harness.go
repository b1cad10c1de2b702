// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authtest

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/holomush/authd/internal/auth"
)

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at t.
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Harness wires a Service, Resolver and SessionStore over in-memory
// repositories, a fake clock and a small hash pool.
type Harness struct {
	Users    *Users
	Sessions *Sessions
	Clock    *Clock
	Store    *auth.SessionStore
	Pool     *auth.HashPool
	Service  *auth.Service
	Resolver *auth.Resolver
}

// NewHarness builds a Harness. The hash pool is closed on test cleanup.
func NewHarness(tb testing.TB, ttl time.Duration) *Harness {
	tb.Helper()

	logger := slog.New(slog.DiscardHandler)
	clock := NewClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	hasher, err := auth.NewArgon2idHasher(FastParams)
	require.NoError(tb, err)
	dummy, err := hasher.Hash("dummy-password")
	require.NoError(tb, err)

	pool, err := auth.NewHashPool(hasher, 2, 8)
	require.NoError(tb, err)
	tb.Cleanup(pool.Close)

	h := &Harness{
		Users:    NewUsers(),
		Sessions: NewSessions(),
		Clock:    clock,
		Pool:     pool,
		Resolver: auth.NewResolver(),
	}
	h.Users.now = clock.Now

	h.Store, err = auth.NewSessionStore(h.Sessions, ttl, logger, auth.WithClock(clock.Now))
	require.NoError(tb, err)

	h.Service, err = auth.NewService(h.Users, pool, logger, auth.WithDummyHash(dummy))
	require.NoError(tb, err)

	return h
}
