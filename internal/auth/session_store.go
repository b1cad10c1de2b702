// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/samber/oops"
)

// SessionStoreOption configures a SessionStore.
type SessionStoreOption func(*SessionStore)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) SessionStoreOption {
	return func(s *SessionStore) {
		s.now = now
	}
}

// SessionStore manages sessions with a sliding inactivity expiry: every
// successful read or write pushes ExpiresAt to now+ttl.
type SessionStore struct {
	repo   SessionRepository
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewSessionStore creates a SessionStore.
func NewSessionStore(repo SessionRepository, ttl time.Duration, logger *slog.Logger, opts ...SessionStoreOption) (*SessionStore, error) {
	if repo == nil {
		return nil, oops.Errorf("session repository is required")
	}
	if ttl <= 0 {
		return nil, oops.With("ttl", ttl).Errorf("inactivity ttl must be positive")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}

	s := &SessionStore{
		repo:   repo,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the inactivity timeout.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

// Create stores a new session holding attrs (nil for an anonymous session)
// and returns the client token.
func (s *SessionStore) Create(ctx context.Context, attrs Attributes) (string, error) {
	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return "", err
	}

	session, err := NewSession(tokenHash, attrs, s.now(), s.ttl)
	if err != nil {
		return "", err
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return "", oops.In("session").
			With("operation", "create session").
			With("session_id", session.ID.String()).
			Wrap(err)
	}
	return token, nil
}

// Get returns the attributes of a live session and slides its expiry.
// Expired sessions are rejected here even if the reaper has not removed them yet.
func (s *SessionStore) Get(ctx context.Context, token string) (Attributes, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	tokenHash := HashSessionToken(token)

	session, err := s.repo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, oops.In("session").With("operation", "get session").Wrap(err)
	}

	now := s.now()
	if session.IsExpiredAt(now) {
		return nil, ErrSessionNotFound
	}

	// Sliding expiry is best effort; the read already succeeded.
	if err := s.repo.Touch(ctx, tokenHash, now, now.Add(s.ttl)); err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.WarnContext(ctx, "failed to refresh session expiry",
			"session_id", session.ID.String(),
			"error", err)
	}

	return session.Data, nil
}

// Set stores one attribute on a live session. Concurrent writers to the
// same key resolve last-write-wins.
func (s *SessionStore) Set(ctx context.Context, token, key string, value any) error {
	if token == "" {
		return ErrSessionNotFound
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return oops.In("session").With("key", key).Wrap(err)
	}

	now := s.now()
	err = s.repo.SetAttribute(ctx, HashSessionToken(token), key, raw, now, now.Add(s.ttl))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrSessionNotFound
		}
		return oops.In("session").With("operation", "set attribute").With("key", key).Wrap(err)
	}
	return nil
}

// Delete removes a session. Unknown tokens are ignored.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.repo.Delete(ctx, HashSessionToken(token)); err != nil {
		return oops.In("session").With("operation", "delete session").Wrap(err)
	}
	return nil
}

// DeleteExpired removes every session whose expiry has passed.
func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, oops.In("session").With("operation", "delete expired sessions").Wrap(err)
	}
	return n, nil
}

// Handle binds a request-scoped view to token. token may be empty; a session
// is only persisted on the first write. onChange is called with the new
// token whenever it changes, and with "" after Flush.
func (s *SessionStore) Handle(token string, onChange func(token string)) *SessionHandle {
	return &SessionHandle{store: s, token: token, onChange: onChange}
}

// SessionData is the per-request session view used by Service and Resolver.
type SessionData interface {
	// Get decodes the attribute key into dst. Reports false when there is
	// no live session or no such attribute.
	Get(ctx context.Context, key string, dst any) (bool, error)

	// Insert stores value under key, creating the session if needed.
	Insert(ctx context.Context, key string, value any) error

	// Renew moves the session to a new token, carrying over its attributes
	// and storing value under key. The old token stops resolving.
	Renew(ctx context.Context, key string, value any) error

	// Flush deletes the session.
	Flush(ctx context.Context) error
}

// SessionHandle is the lazily persisted session of a single request.
type SessionHandle struct {
	store    *SessionStore
	onChange func(string)

	mu    sync.Mutex
	token string
}

// Token returns the current client token, or "" if none.
func (h *SessionHandle) Token() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.token
}

// Get implements SessionData. A token the store rejects is dropped from
// the handle.
func (h *SessionHandle) Get(ctx context.Context, key string, dst any) (bool, error) {
	token := h.Token()
	if token == "" {
		return false, nil
	}

	attrs, err := h.store.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			h.forget(token)
			return false, nil
		}
		return false, err
	}

	raw, ok := attrs[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, oops.In("session").With("key", key).Wrap(err)
	}
	return true, nil
}

// Insert implements SessionData. If the bound session no longer exists a
// new one is created and the token change is reported.
func (h *SessionHandle) Insert(ctx context.Context, key string, value any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.insert(ctx, key, value)
}

// Renew implements SessionData. It is used when the session changes
// privilege, so a token issued before sign-in never carries the signed-in
// user. Renewing without a live session creates one.
func (h *SessionHandle) Renew(ctx context.Context, key string, value any) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.rotate(ctx); err != nil {
		return err
	}
	return h.insert(ctx, key, value)
}

func (h *SessionHandle) insert(ctx context.Context, key string, value any) error {
	if h.token != "" {
		err := h.store.Set(ctx, h.token, key, value)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrSessionNotFound) {
			return err
		}
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return oops.In("session").With("key", key).Wrap(err)
	}

	token, err := h.store.Create(ctx, Attributes{key: raw})
	if err != nil {
		return err
	}
	h.setToken(token)
	return nil
}

// rotate moves the live session's attributes to a new token and deletes
// the old record. A dead token is dropped.
func (h *SessionHandle) rotate(ctx context.Context) error {
	old := h.token
	if old == "" {
		return nil
	}

	attrs, err := h.store.Get(ctx, old)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			h.setToken("")
			return nil
		}
		return err
	}

	token, err := h.store.Create(ctx, maps.Clone(attrs))
	if err != nil {
		return err
	}

	if err := h.store.Delete(ctx, old); err != nil {
		// The old token must not outlive the rotation; drop the new session.
		if rollbackErr := h.store.Delete(ctx, token); rollbackErr != nil {
			h.store.logger.WarnContext(ctx, "failed to remove rotated session", "error", rollbackErr)
		}
		return err
	}

	h.setToken(token)
	return nil
}

// Flush implements SessionData. Flushing without a session is a no-op.
func (h *SessionHandle) Flush(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.token == "" {
		return nil
	}
	if err := h.store.Delete(ctx, h.token); err != nil {
		return err
	}
	h.setToken("")
	return nil
}

// forget unbinds a token the store no longer knows, unless a concurrent
// Insert already replaced it.
func (h *SessionHandle) forget(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.token == token {
		h.setToken("")
	}
}

func (h *SessionHandle) setToken(token string) {
	h.token = token
	if h.onChange != nil {
		h.onChange(token)
	}
}

var _ SessionData = (*SessionHandle)(nil)
