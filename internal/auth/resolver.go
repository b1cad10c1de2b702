// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"

	"github.com/samber/oops"
)

// Resolver maps a request's session to the authenticated User.
type Resolver struct{}

// NewResolver creates a Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns the user stored in sess. A missing, unknown or expired
// session yields a CodeUnauthorized error.
func (r *Resolver) Resolve(ctx context.Context, sess SessionData) (*User, error) {
	var user User
	found, err := sess.Get(ctx, SessionUserKey, &user)
	if err != nil {
		return nil, oops.Code(CodeSessionError).
			With("operation", "read session user").
			Wrap(err)
	}
	if !found {
		return nil, oops.Code(CodeUnauthorized).Errorf("unauthorized")
	}
	return &user, nil
}
