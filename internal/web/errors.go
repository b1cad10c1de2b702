// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/holomush/authd/internal/auth"
	"github.com/holomush/authd/pkg/errutil"
)

// ErrorItem is one entry of an error response body.
type ErrorItem struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

const (
	msgInvalidBody = "invalid request body"
	msgInternal    = "internal server error"
)

// publicMessages holds the client-facing text per error code. Codes not
// listed here are internal and get msgInternal.
var publicMessages = map[string]string{
	auth.CodeEmailExists:        "email already exists",
	auth.CodeInvalidCredentials: "invalid credentials",
	auth.CodeUnauthorized:       "unauthorized",
}

// StatusFor maps an error's code to an HTTP status. Unknown codes are 500.
func StatusFor(err error) int {
	switch errutil.Code(err) {
	case auth.CodeValidationFailed:
		return http.StatusBadRequest
	case auth.CodeEmailExists:
		return http.StatusConflict
	case auth.CodeInvalidCredentials, auth.CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// errorItems builds the response body for err. Internal details never
// reach the client.
func errorItems(err error, status int) []ErrorItem {
	if status == http.StatusBadRequest {
		var verr *auth.ValidationError
		if errors.As(err, &verr) && len(verr.Fields) > 0 {
			items := make([]ErrorItem, 0, len(verr.Fields))
			for _, f := range verr.Fields {
				items = append(items, ErrorItem{Field: f.Field, Message: f.Message})
			}
			return items
		}
	}
	if msg, ok := publicMessages[errutil.Code(err)]; ok && status < http.StatusInternalServerError {
		return []ErrorItem{{Message: msg}}
	}
	return []ErrorItem{{Message: msgInternal}}
}

// WriteError logs err and writes its flat-list body. 5xx are logged at
// error level, 4xx at warn.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := StatusFor(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	errutil.Log(r.Context(), logger.With("method", r.Method, "path", r.URL.Path, "status", status),
		level, "request failed", err)

	writeJSON(w, status, errorItems(err, status))
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, []ErrorItem{{Message: msg}})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // client may have disconnected
	json.NewEncoder(w).Encode(body)
}
