// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authd/internal/auth"
	"github.com/holomush/authd/pkg/errutil"
)

// fastParams keeps argon2 cheap in tests.
func fastParams() auth.Argon2Params {
	return auth.Argon2Params{
		MemoryKiB:   1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newTestHasher(t *testing.T) *auth.Argon2idHasher {
	t.Helper()
	hasher, err := auth.NewArgon2idHasher(fastParams())
	require.NoError(t, err)
	return hasher
}

func TestArgon2idHasher_Hash(t *testing.T) {
	hasher := newTestHasher(t)

	t.Run("produces PHC encoded hash with configured params", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"))
		assert.Len(t, strings.Split(hash, "$"), 6)
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("hash does not contain the password", func(t *testing.T) {
		hash, err := hasher.Hash("s3cretpass")
		require.NoError(t, err)
		assert.NotContains(t, hash, "s3cretpass")
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_EMPTY_PASSWORD")
	})
}

func TestArgon2idHasher_Verify(t *testing.T) {
	hasher := newTestHasher(t)

	hash, err := hasher.Hash("correctpassword")
	require.NoError(t, err)

	t.Run("correct password verifies", func(t *testing.T) {
		ok, err := hasher.Verify("correctpassword", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("incorrect password fails", func(t *testing.T) {
		ok, err := hasher.Verify("wrongpassword", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("verifies hashes made with other parameters", func(t *testing.T) {
		other, err := auth.NewArgon2idHasher(auth.Argon2Params{
			MemoryKiB:   2048,
			Iterations:  2,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		})
		require.NoError(t, err)
		otherHash, err := other.Hash("portable")
		require.NoError(t, err)

		ok, err := hasher.Verify("portable", otherHash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	invalid := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"wrong part count", "$argon2id$v=19$m=1024"},
		{"bcrypt", "$2a$10$abcdefghijklmnopqrstuv"},
		{"unsupported algorithm", "$argon2i$v=19$m=1024,t=1,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"},
		{"bad version", "$argon2id$v=16$m=1024,t=1,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"},
		{"bad params", "$argon2id$v=19$m=x,t=1,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"},
		{"threads overflow", "$argon2id$v=19$m=1024,t=1,p=256$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"},
		{"bad salt", "$argon2id$v=19$m=1024,t=1,p=1$!!!$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"},
		{"empty key", "$argon2id$v=19$m=1024,t=1,p=1$AAAAAAAAAAAAAAAAAAAAAA$"},
	}
	for _, tt := range invalid {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			ok, err := hasher.Verify("password", tt.hash)
			require.Error(t, err)
			assert.False(t, ok)
			errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
		})
	}
}

func TestArgon2Params_Validate(t *testing.T) {
	assert.NoError(t, auth.DefaultArgon2Params().Validate())

	tests := []struct {
		name   string
		mutate func(*auth.Argon2Params)
	}{
		{"zero iterations", func(p *auth.Argon2Params) { p.Iterations = 0 }},
		{"zero parallelism", func(p *auth.Argon2Params) { p.Parallelism = 0 }},
		{"memory below lanes", func(p *auth.Argon2Params) { p.MemoryKiB = 4 }},
		{"short salt", func(p *auth.Argon2Params) { p.SaltLength = 4 }},
		{"short key", func(p *auth.Argon2Params) { p.KeyLength = 8 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := auth.DefaultArgon2Params()
			tt.mutate(&p)
			_, err := auth.NewArgon2idHasher(p)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "AUTH_INVALID_PARAMS")
		})
	}
}
