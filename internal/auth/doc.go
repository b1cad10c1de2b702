// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides user registration, credential verification and
// server-side session management for authd.
//
// # Domain Types
//
//   - User - a registered account; the password hash never leaves the process
//   - Session - a server-side record addressed by an opaque cookie token
//
// # Components
//
//   - UserRepository - persistence for users (see auth/postgres)
//   - HashPool - argon2id hashing on a bounded set of worker goroutines
//   - SessionStore - session CRUD with sliding inactivity expiry
//   - Reaper - periodic bulk removal of expired sessions
//   - Service - Register, Login and Logout
//   - Resolver - maps a request's session to the authenticated User
//
// Services are created with New* constructors that validate dependencies.
package auth
