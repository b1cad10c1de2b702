// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/holomush/authd/internal/auth"
)

const userColumns = `id, first_name, last_name, email, password, created_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail retrieves a user by exact email match.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.In("user_repo").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.In("user_repo").
			With("operation", "find user by email").
			Wrap(err)
	}
	return user, nil
}

// EmailExists reports whether the email is already registered.
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, oops.In("user_repo").
			With("operation", "check email exists").
			Wrap(err)
	}
	return exists, nil
}

// Insert stores a new user. A duplicate email yields an error wrapping
// auth.ErrConflict.
func (r *UserRepository) Insert(ctx context.Context, firstName, lastName, email, passwordHash string) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (first_name, last_name, email, password)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		firstName, lastName, email, passwordHash,
	)

	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, oops.In("user_repo").
				With("constraint", pgErr.ConstraintName).
				Wrap(auth.ErrConflict)
		}
		return nil, oops.In("user_repo").
			With("operation", "insert user").
			Wrap(err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var u auth.User
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with operation context
	}
	return &u, nil
}

var _ auth.UserRepository = (*UserRepository)(nil)
