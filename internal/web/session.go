// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"context"
	"net/http"
	"time"

	"github.com/holomush/authd/internal/auth"
)

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	// MaxAge is normally the session inactivity TTL.
	MaxAge time.Duration
}

type sessionKey struct{}

// sessionFrom returns the request's session handle, or nil outside Sessions.
func sessionFrom(ctx context.Context) *auth.SessionHandle {
	h, _ := ctx.Value(sessionKey{}).(*auth.SessionHandle)
	return h
}

// Sessions binds a lazily persisted session to every request. The cookie is
// written just before the response header: refreshed while a session is
// bound, cleared when the request's session went away.
func Sessions(store *auth.SessionStore, cfg CookieConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if c, err := r.Cookie(cfg.Name); err == nil {
				token = c.Value
			}

			cw := &cookieWriter{ResponseWriter: w, cfg: cfg, hadCookie: token != ""}
			handle := store.Handle(token, nil)
			cw.handle = handle

			ctx := context.WithValue(r.Context(), sessionKey{}, handle)
			next.ServeHTTP(cw, r.WithContext(ctx))
			cw.flushCookie()
		})
	}
}

// cookieWriter sets the session cookie once, before the first header write.
type cookieWriter struct {
	http.ResponseWriter
	cfg       CookieConfig
	handle    *auth.SessionHandle
	hadCookie bool
	written   bool
}

func (cw *cookieWriter) WriteHeader(code int) {
	cw.flushCookie()
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *cookieWriter) Write(b []byte) (int, error) {
	cw.flushCookie()
	//nolint:wrapcheck // ResponseWriter passthrough
	return cw.ResponseWriter.Write(b)
}

func (cw *cookieWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}

func (cw *cookieWriter) flushCookie() {
	if cw.written {
		return
	}
	cw.written = true

	token := cw.handle.Token()
	switch {
	case token != "":
		http.SetCookie(cw.ResponseWriter, cw.cookie(token, int(cw.cfg.MaxAge/time.Second)))
	case cw.hadCookie:
		http.SetCookie(cw.ResponseWriter, cw.cookie("", -1))
	}
}

func (cw *cookieWriter) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     cw.cfg.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cw.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
