// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"
)

// User is a registered account.
type User struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never serialized, including into sessions
	CreatedAt    time.Time `json:"createdAt"`
}

// UserRepository manages user persistence.
type UserRepository interface {
	// FindByEmail retrieves a user by exact email. Returns ErrNotFound if absent.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// EmailExists reports whether a user with the exact email is stored.
	EmailExists(ctx context.Context, email string) (bool, error)

	// Insert stores a new user and returns it with ID and CreatedAt populated.
	// Returns an error wrapping ErrConflict if the email is already taken.
	Insert(ctx context.Context, firstName, lastName, email, passwordHash string) (*User, error)
}
