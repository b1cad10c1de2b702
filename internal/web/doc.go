// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package web exposes the auth service over HTTP.
//
// Routes:
//
//	POST /users/register  201 user, 400 validation, 409 email taken
//	POST /users/login     200 user, 400 validation, 401 invalid credentials
//	POST /users/logout    204
//	GET  /users/me        200 user, 401 unauthenticated
//
// Every error body is a JSON array of {"field", "message"} objects; field is
// present only for validation failures. The session travels in an HttpOnly
// cookie that is issued on the first session write and cleared on logout.
package web
