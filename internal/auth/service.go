// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// SessionUserKey is the session attribute holding the authenticated User.
const SessionUserKey = "auth_user"

// dummyPasswordHash is verified against when the email is unknown so that
// unknown-email and wrong-password logins take comparable time. It matches
// no password.
//
//nolint:gosec // G101: not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithDummyHash replaces the hash verified for unknown emails. Use a hash
// produced with the configured argon2 parameters so both paths cost the same.
func WithDummyHash(hash string) ServiceOption {
	return func(s *Service) {
		s.dummyHash = hash
	}
}

// Service implements registration, login and logout.
type Service struct {
	users     UserRepository
	hasher    AsyncHasher
	logger    *slog.Logger
	dummyHash string
}

// NewService creates a new Service.
func NewService(users UserRepository, hasher AsyncHasher, logger *slog.Logger, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}

	s := &Service{
		users:     users,
		hasher:    hasher,
		logger:    logger,
		dummyHash: dummyPasswordHash,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates an account and signs the new user into a renewed sess.
func (s *Service) Register(ctx context.Context, sess SessionData, in RegisterInput) (*User, error) {
	if err := in.Validate(); err != nil {
		return nil, oops.Code(CodeValidationFailed).Wrap(err)
	}

	// Best-effort pre-check; the unique constraint on insert is authoritative.
	exists, err := s.users.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, oops.Code(CodeStorageUnavailable).
			With("operation", "check email").
			Wrap(err)
	}
	if exists {
		return nil, emailExists()
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, oops.Code(CodeInternal).
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := s.users.Insert(ctx, in.FirstName, in.LastName, in.Email, hash)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, emailExists()
		}
		return nil, oops.Code(CodeStorageUnavailable).
			With("operation", "insert user").
			Wrap(err)
	}

	if err := sess.Renew(ctx, SessionUserKey, user); err != nil {
		return nil, oops.Code(CodeSessionError).
			With("operation", "store session user").
			With("user_id", user.ID).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Login verifies credentials and signs the user into a renewed sess. Unknown emails
// and wrong passwords produce the same error.
func (s *Service) Login(ctx context.Context, sess SessionData, in LoginInput) (*User, error) {
	if err := in.Validate(); err != nil {
		return nil, oops.Code(CodeValidationFailed).Wrap(err)
	}

	user, lookupErr := s.users.FindByEmail(ctx, in.Email)
	if lookupErr != nil && !errors.Is(lookupErr, ErrNotFound) {
		return nil, oops.Code(CodeStorageUnavailable).
			With("operation", "find user by email").
			Wrap(lookupErr)
	}

	targetHash := s.dummyHash
	if user != nil && lookupErr == nil {
		targetHash = user.PasswordHash
	}

	// Verify even for unknown emails so both paths do the same work.
	valid, verifyErr := s.hasher.Verify(ctx, in.Password, targetHash)
	if lookupErr != nil {
		return nil, invalidCredentials()
	}
	if verifyErr != nil {
		return nil, oops.Code(CodeInternal).
			With("operation", "verify password").
			With("user_id", user.ID).
			Wrap(verifyErr)
	}
	if !valid {
		return nil, invalidCredentials()
	}

	if err := sess.Renew(ctx, SessionUserKey, user); err != nil {
		return nil, oops.Code(CodeSessionError).
			With("operation", "store session user").
			With("user_id", user.ID).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return user, nil
}

// Logout ends the session. Logging out without a session succeeds.
func (s *Service) Logout(ctx context.Context, sess SessionData) error {
	if err := sess.Flush(ctx); err != nil {
		return oops.Code(CodeSessionError).
			With("operation", "flush session").
			Wrap(err)
	}
	return nil
}

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("invalid credentials")
}

func emailExists() error {
	return oops.Code(CodeEmailExists).Wrapf(ErrConflict, "email already exists")
}
