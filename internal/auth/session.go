// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionTokenBytes is the entropy of a session token (64 hex chars).
const SessionTokenBytes = 32

// Session timing defaults.
const (
	DefaultInactivityTTL           = 24 * time.Hour
	DefaultReapIntervalProduction  = 24 * time.Hour
	DefaultReapIntervalDevelopment = time.Hour
)

// Attributes is the key/value payload of a session. Values are JSON documents.
type Attributes map[string]json.RawMessage

// Session is a server-side session record. Only the SHA-256 of the client's
// token is stored.
type Session struct {
	ID             ulid.ULID
	TokenHash      string
	Data           Attributes
	CreatedAt      time.Time
	LastActivityAt time.Time
	ExpiresAt      time.Time
}

// NewSession creates a session that expires ttl after now.
func NewSession(tokenHash string, data Attributes, now time.Time, ttl time.Duration) (*Session, error) {
	if tokenHash == "" {
		return nil, oops.Errorf("token hash cannot be empty")
	}
	if ttl <= 0 {
		return nil, oops.With("ttl", ttl).Errorf("session ttl must be positive")
	}
	if data == nil {
		data = Attributes{}
	}
	return &Session{
		ID:             ulid.Make(),
		TokenHash:      tokenHash,
		Data:           data,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(ttl),
	}, nil
}

// IsExpiredAt returns true if the session is past its expiry at t.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// GenerateSessionToken creates a secure random token and its hash.
// The token goes to the client; only the hash is persisted.
func GenerateSessionToken() (token, hash string, err error) {
	buf := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", oops.With("operation", "generate session token").Wrap(err)
	}
	token = hex.EncodeToString(buf)
	return token, HashSessionToken(token), nil
}

// HashSessionToken returns the hex SHA-256 of a token.
func HashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// SessionRepository manages session persistence. Records are addressed by
// token hash. Methods that take now treat records with expires_at < now as
// absent.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves a session regardless of expiry.
	// Returns ErrNotFound if absent.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// SetAttribute atomically merges one attribute into the session and
	// refreshes its activity and expiry. Returns ErrNotFound if the session
	// is absent or expired at now.
	SetAttribute(ctx context.Context, tokenHash, key string, value json.RawMessage, now, expiresAt time.Time) error

	// Touch refreshes activity and expiry. Returns ErrNotFound if the session
	// is absent or expired at now.
	Touch(ctx context.Context, tokenHash string, now, expiresAt time.Time) error

	// Delete removes a session. Deleting an absent session is not an error.
	Delete(ctx context.Context, tokenHash string) error

	// DeleteExpired removes every session that expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
