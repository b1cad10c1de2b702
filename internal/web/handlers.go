// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/holomush/authd/internal/auth"
	"github.com/holomush/authd/pkg/errutil"
)

// maxBodyBytes bounds request bodies; credentials are small.
const maxBodyBytes = 64 << 10

// AuthService is the subset of auth.Service the handlers call.
type AuthService interface {
	Register(ctx context.Context, sess auth.SessionData, in auth.RegisterInput) (*auth.User, error)
	Login(ctx context.Context, sess auth.SessionData, in auth.LoginInput) (*auth.User, error)
	Logout(ctx context.Context, sess auth.SessionData) error
}

// IdentityResolver resolves the signed-in user of a session.
type IdentityResolver interface {
	Resolve(ctx context.Context, sess auth.SessionData) (*auth.User, error)
}

// AuthRecorder receives auth outcomes. result is "ok" or the error code.
type AuthRecorder interface {
	RecordAuth(op, result string)
}

// AuthedHandlerFunc handles a request on behalf of a resolved user.
type AuthedHandlerFunc func(w http.ResponseWriter, r *http.Request, user *auth.User)

// Handlers serves the /users routes.
type Handlers struct {
	service  AuthService
	resolver IdentityResolver
	logger   *slog.Logger
	recorder AuthRecorder
}

// NewHandlers creates the route handlers. recorder may be nil.
func NewHandlers(service AuthService, resolver IdentityResolver, logger *slog.Logger, recorder AuthRecorder) *Handlers {
	return &Handlers{service: service, resolver: resolver, logger: logger, recorder: recorder}
}

// errNoSession is returned when a handler runs outside Sessions.
var errNoSession = oops.Code(auth.CodeSessionError).Errorf("no session bound to request")

// Register handles POST /users/register.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if !h.decode(w, r, &in) {
		return
	}
	sess := sessionFrom(r.Context())
	if sess == nil {
		WriteError(w, r, h.logger, errNoSession)
		return
	}

	user, err := h.service.Register(r.Context(), sess, in)
	h.record("register", err)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login handles POST /users/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in auth.LoginInput
	if !h.decode(w, r, &in) {
		return
	}
	sess := sessionFrom(r.Context())
	if sess == nil {
		WriteError(w, r, h.logger, errNoSession)
		return
	}

	user, err := h.service.Login(r.Context(), sess, in)
	h.record("login", err)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Logout handles POST /users/logout. It succeeds without a session.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if sess == nil {
		WriteError(w, r, h.logger, errNoSession)
		return
	}

	err := h.service.Logout(r.Context(), sess)
	h.record("logout", err)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /users/me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request, user *auth.User) {
	writeJSON(w, http.StatusOK, user)
}

// RequireUser runs next only when the request's session resolves to a user.
func (h *Handlers) RequireUser(next AuthedHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r.Context())
		if sess == nil {
			WriteError(w, r, h.logger, errNoSession)
			return
		}
		user, err := h.resolver.Resolve(r.Context(), sess)
		if err != nil {
			WriteError(w, r, h.logger, err)
			return
		}
		next(w, r, user)
	}
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		h.logger.WarnContext(r.Context(), "malformed request body", "path", r.URL.Path, "error", err)
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	return true
}

func (h *Handlers) record(op string, err error) {
	if h.recorder == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = errutil.Code(err)
		if result == "" {
			result = "error"
		}
	}
	h.recorder.RecordAuth(op, result)
}
