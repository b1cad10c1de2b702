// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authd/internal/auth"
)

func TestGenerateSessionToken(t *testing.T) {
	t.Run("generates secure token", func(t *testing.T) {
		token, hash, err := auth.GenerateSessionToken()
		require.NoError(t, err)
		assert.Len(t, token, 64) // 32 bytes hex-encoded
		assert.NotEmpty(t, hash)
		assert.NotEqual(t, token, hash)
	})

	t.Run("generates unique tokens", func(t *testing.T) {
		token1, hash1, err := auth.GenerateSessionToken()
		require.NoError(t, err)

		token2, hash2, err := auth.GenerateSessionToken()
		require.NoError(t, err)

		assert.NotEqual(t, token1, token2)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("hash matches HashSessionToken", func(t *testing.T) {
		token, hash, err := auth.GenerateSessionToken()
		require.NoError(t, err)
		assert.Equal(t, auth.HashSessionToken(token), hash)
	})
}

func TestHashSessionToken(t *testing.T) {
	t.Run("produces consistent hash", func(t *testing.T) {
		assert.Equal(t, auth.HashSessionToken("testtoken123"), auth.HashSessionToken("testtoken123"))
	})

	t.Run("produces different hashes for different tokens", func(t *testing.T) {
		assert.NotEqual(t, auth.HashSessionToken("token1"), auth.HashSessionToken("token2"))
	})

	t.Run("known SHA-256 vector", func(t *testing.T) {
		assert.Equal(t,
			"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
			auth.HashSessionToken(""))
	})
}

func TestNewSession(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("sets timestamps from now and ttl", func(t *testing.T) {
		attrs := auth.Attributes{"auth_user": json.RawMessage(`{"id":1}`)}

		s, err := auth.NewSession("somehash", attrs, now, 24*time.Hour)
		require.NoError(t, err)

		assert.NotZero(t, s.ID)
		assert.Equal(t, "somehash", s.TokenHash)
		assert.Equal(t, now, s.CreatedAt)
		assert.Equal(t, now, s.LastActivityAt)
		assert.Equal(t, now.Add(24*time.Hour), s.ExpiresAt)
		assert.JSONEq(t, `{"id":1}`, string(s.Data["auth_user"]))
	})

	t.Run("nil data becomes empty attributes", func(t *testing.T) {
		s, err := auth.NewSession("somehash", nil, now, time.Hour)
		require.NoError(t, err)
		assert.NotNil(t, s.Data)
		assert.Empty(t, s.Data)
	})

	t.Run("unique IDs", func(t *testing.T) {
		a, err := auth.NewSession("a", nil, now, time.Hour)
		require.NoError(t, err)
		b, err := auth.NewSession("b", nil, now, time.Hour)
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("rejects empty token hash", func(t *testing.T) {
		_, err := auth.NewSession("", nil, now, time.Hour)
		require.Error(t, err)
	})

	t.Run("rejects non-positive ttl", func(t *testing.T) {
		_, err := auth.NewSession("somehash", nil, now, 0)
		require.Error(t, err)
	})
}

func TestSession_IsExpiredAt(t *testing.T) {
	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	s, err := auth.NewSession("somehash", nil, base, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{name: "before expiry", at: base.Add(30 * time.Minute), want: false},
		{name: "exactly at expiry", at: base.Add(time.Hour), want: false},
		{name: "just past expiry", at: base.Add(time.Hour + time.Nanosecond), want: true},
		{name: "long after expiry", at: base.Add(48 * time.Hour), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.IsExpiredAt(tt.at))
		})
	}
}
