// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/holomush/authd/internal/auth"
)

// HTTPRecorder receives per-route request outcomes.
type HTTPRecorder interface {
	ObserveHTTP(route string, status int, d time.Duration)
}

// RouterConfig wires the HTTP API.
type RouterConfig struct {
	Service  AuthService
	Resolver IdentityResolver
	Sessions *auth.SessionStore
	Cookie   CookieConfig
	Logger   *slog.Logger
	// Metrics is optional. When it also implements AuthRecorder, auth
	// outcomes are counted too.
	Metrics HTTPRecorder
}

// NewRouter returns the API handler with its middleware chain.
func NewRouter(cfg RouterConfig) http.Handler {
	var recorder AuthRecorder
	if ar, ok := cfg.Metrics.(AuthRecorder); ok {
		recorder = ar
	}
	h := NewHandlers(cfg.Service, cfg.Resolver, cfg.Logger, recorder)

	mux := http.NewServeMux()
	route := func(pattern string, handler http.HandlerFunc) {
		mux.Handle(pattern, instrument(pattern, handler, cfg.Metrics))
	}
	route("POST /users/register", h.Register)
	route("POST /users/login", h.Login)
	route("POST /users/logout", h.Logout)
	route("GET /users/me", h.RequireUser(h.Me))

	return Chain(mux,
		RequestID,
		AccessLog(cfg.Logger),
		Recovery(cfg.Logger),
		CORS,
		Sessions(cfg.Sessions, cfg.Cookie),
	)
}

func instrument(route string, next http.Handler, rec HTTPRecorder) http.Handler {
	if rec == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)
		rec.ObserveHTTP(route, sr.status, time.Since(start))
	})
}
