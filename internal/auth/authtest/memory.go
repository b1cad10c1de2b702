// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package authtest provides in-memory repositories and a fast hasher for
// tests that exercise auth end to end without PostgreSQL.
package authtest

import (
	"context"
	"encoding/json"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/holomush/authd/internal/auth"
)

// FastParams are cheap Argon2id parameters for tests.
var FastParams = auth.Argon2Params{
	MemoryKiB:   1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// Users is an in-memory auth.UserRepository with a unique email index.
type Users struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]auth.User
	now    func() time.Time
}

// NewUsers creates an empty user repository.
func NewUsers() *Users {
	return &Users{byID: make(map[int64]auth.User), now: time.Now}
}

func (u *Users) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, user := range u.byID {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (u *Users) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := u.FindByEmail(ctx, email)
	return err == nil, nil
}

func (u *Users) Insert(_ context.Context, firstName, lastName, email, passwordHash string) (*auth.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, user := range u.byID {
		if user.Email == email {
			return nil, auth.ErrConflict
		}
	}
	u.nextID++
	user := auth.User{
		ID:           u.nextID,
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    u.now().UTC(),
	}
	u.byID[user.ID] = user
	return &user, nil
}

// Count returns the number of stored users.
func (u *Users) Count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.byID)
}

// Sessions is an in-memory auth.SessionRepository.
type Sessions struct {
	mu     sync.Mutex
	byHash map[string]auth.Session
}

// NewSessions creates an empty session repository.
func NewSessions() *Sessions {
	return &Sessions{byHash: make(map[string]auth.Session)}
}

func (s *Sessions) Create(_ context.Context, sess *auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byHash[sess.TokenHash]; ok {
		return auth.ErrConflict
	}
	cp := *sess
	cp.Data = maps.Clone(sess.Data)
	s.byHash[sess.TokenHash] = cp
	return nil
}

func (s *Sessions) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byHash[tokenHash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	sess.Data = maps.Clone(sess.Data)
	return &sess, nil
}

func (s *Sessions) SetAttribute(_ context.Context, tokenHash, key string, value json.RawMessage, now, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byHash[tokenHash]
	if !ok || sess.ExpiresAt.Before(now) {
		return auth.ErrNotFound
	}
	sess.Data = maps.Clone(sess.Data)
	if sess.Data == nil {
		sess.Data = auth.Attributes{}
	}
	sess.Data[key] = value
	sess.LastActivityAt = now
	sess.ExpiresAt = expiresAt
	s.byHash[tokenHash] = sess
	return nil
}

func (s *Sessions) Touch(_ context.Context, tokenHash string, now, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byHash[tokenHash]
	if !ok || sess.ExpiresAt.Before(now) {
		return auth.ErrNotFound
	}
	sess.LastActivityAt = now
	sess.ExpiresAt = expiresAt
	s.byHash[tokenHash] = sess
	return nil
}

func (s *Sessions) Delete(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byHash, tokenHash)
	return nil
}

func (s *Sessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for hash, sess := range s.byHash {
		if sess.ExpiresAt.Before(now) {
			delete(s.byHash, hash)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byHash)
}

// Contains reports whether the attributes of any stored session mention substr.
func (s *Sessions) Contains(substr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.byHash {
		for _, raw := range sess.Data {
			if strings.Contains(string(raw), substr) {
				return true
			}
		}
	}
	return false
}

var (
	_ auth.UserRepository    = (*Users)(nil)
	_ auth.SessionRepository = (*Sessions)(nil)
)
