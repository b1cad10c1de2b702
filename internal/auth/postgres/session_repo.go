// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authd/internal/auth"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	db DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	data, err := json.Marshal(session.Data)
	if err != nil {
		return oops.In("session_repo").
			With("operation", "marshal session data").
			Wrap(err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO sessions (id, token_hash, data, created_at, last_activity_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		session.ID.String(),
		session.TokenHash,
		data,
		session.CreatedAt,
		session.LastActivityAt,
		session.ExpiresAt,
	)
	if err != nil {
		return oops.In("session_repo").
			With("operation", "insert session").
			With("session_id", session.ID.String()).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a session by token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, token_hash, data, created_at, last_activity_at, expires_at
		FROM sessions
		WHERE token_hash = $1
	`, tokenHash)

	var (
		s    auth.Session
		id   string
		data []byte
	)
	err := row.Scan(&id, &s.TokenHash, &data, &s.CreatedAt, &s.LastActivityAt, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.In("session_repo").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.In("session_repo").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if s.ID, err = ulid.Parse(id); err != nil {
		return nil, oops.In("session_repo").
			With("operation", "parse session id").
			With("session_id", id).
			Wrap(err)
	}
	if err := json.Unmarshal(data, &s.Data); err != nil {
		return nil, oops.In("session_repo").
			With("operation", "unmarshal session data").
			With("session_id", id).
			Wrap(err)
	}
	if s.Data == nil {
		s.Data = auth.Attributes{}
	}
	return &s, nil
}

// SetAttribute merges one attribute into a live session in a single statement.
func (r *SessionRepository) SetAttribute(ctx context.Context, tokenHash, key string, value json.RawMessage, now, expiresAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sessions
		SET data = data || jsonb_build_object($2::text, $3::jsonb),
		    last_activity_at = $4,
		    expires_at = $5
		WHERE token_hash = $1 AND expires_at >= $4
	`, tokenHash, key, []byte(value), now, expiresAt)
	if err != nil {
		return oops.In("session_repo").
			With("operation", "set session attribute").
			With("key", key).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.In("session_repo").With("key", key).Wrap(auth.ErrNotFound)
	}
	return nil
}

// Touch refreshes activity and expiry of a live session.
func (r *SessionRepository) Touch(ctx context.Context, tokenHash string, now, expiresAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sessions
		SET last_activity_at = $2, expires_at = $3
		WHERE token_hash = $1 AND expires_at >= $2
	`, tokenHash, now, expiresAt)
	if err != nil {
		return oops.In("session_repo").
			With("operation", "touch session").
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.In("session_repo").Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes a session. Missing sessions are not an error.
func (r *SessionRepository) Delete(ctx context.Context, tokenHash string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return oops.In("session_repo").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes every session that expired before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, oops.In("session_repo").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return tag.RowsAffected(), nil
}

var _ auth.SessionRepository = (*SessionRepository)(nil)
