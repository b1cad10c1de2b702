// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/authd/internal/auth"
	"github.com/holomush/authd/internal/auth/authtest"
	"github.com/holomush/authd/internal/auth/postgres"
	"github.com/holomush/authd/internal/web"
)

const inactivityTTL = 24 * time.Hour

// stack is the full HTTP API over the test database.
type stack struct {
	srv      *httptest.Server
	clock    *authtest.Clock
	sessions *auth.SessionStore
	pool     *auth.HashPool
}

func newStack() *stack {
	ctx := context.Background()
	Expect(testDB.Truncate(ctx)).To(Succeed())

	logger := slog.New(slog.DiscardHandler)
	// Session expiry is checked in SQL against the caller's clock, so a
	// fake clock starting at the real time keeps both sides consistent.
	clock := authtest.NewClock(time.Now().UTC())

	hasher, err := auth.NewArgon2idHasher(authtest.FastParams)
	Expect(err).NotTo(HaveOccurred())
	dummy, err := hasher.Hash("dummy-password")
	Expect(err).NotTo(HaveOccurred())

	pool, err := auth.NewHashPool(hasher, 2, 16)
	Expect(err).NotTo(HaveOccurred())

	sessions, err := auth.NewSessionStore(postgres.NewSessionRepository(testDB.Pool), inactivityTTL, logger,
		auth.WithClock(clock.Now))
	Expect(err).NotTo(HaveOccurred())

	service, err := auth.NewService(postgres.NewUserRepository(testDB.Pool), pool, logger, auth.WithDummyHash(dummy))
	Expect(err).NotTo(HaveOccurred())

	router := web.NewRouter(web.RouterConfig{
		Service:  service,
		Resolver: auth.NewResolver(),
		Sessions: sessions,
		Cookie:   web.CookieConfig{Name: "id", MaxAge: inactivityTTL},
		Logger:   logger,
	})

	s := &stack{
		srv:      httptest.NewServer(router),
		clock:    clock,
		sessions: sessions,
		pool:     pool,
	}
	DeferCleanup(func() {
		s.srv.Close()
		s.pool.Close()
	})
	return s
}

func (s *stack) client() *http.Client {
	jar, err := cookiejar.New(nil)
	Expect(err).NotTo(HaveOccurred())
	return &http.Client{Jar: jar}
}

func (s *stack) post(c *http.Client, path string, body any) (int, []byte) {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		rd = bytes.NewReader(raw)
	}
	resp, err := c.Post(s.srv.URL+path, "application/json", rd)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp.StatusCode, data
}

func (s *stack) me(c *http.Client) (int, []byte) {
	resp, err := c.Get(s.srv.URL + "/users/me")
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp.StatusCode, data
}

func registration(email string) map[string]string {
	return map[string]string{
		"firstName": "Ann",
		"lastName":  "Lee",
		"email":     email,
		"password":  "secret123",
	}
}

func decodeUser(data []byte) map[string]any {
	var user map[string]any
	Expect(json.Unmarshal(data, &user)).To(Succeed())
	return user
}

var _ = Describe("Auth flow", func() {
	var s *stack

	BeforeEach(func() {
		s = newStack()
	})

	It("registers, resolves, logs out and logs back in", func() {
		c := s.client()

		status, body := s.post(c, "/users/register", registration("ann@x.com"))
		Expect(status).To(Equal(http.StatusCreated))
		user := decodeUser(body)
		Expect(user).To(HaveKeyWithValue("email", "ann@x.com"))
		Expect(user).NotTo(HaveKey("passwordHash"))
		Expect(string(body)).NotTo(ContainSubstring("argon2id"))

		status, body = s.me(c)
		Expect(status).To(Equal(http.StatusOK))
		Expect(decodeUser(body)).To(HaveKeyWithValue("firstName", "Ann"))

		status, _ = s.post(c, "/users/logout", nil)
		Expect(status).To(Equal(http.StatusNoContent))

		status, _ = s.me(c)
		Expect(status).To(Equal(http.StatusUnauthorized))

		status, _ = s.post(c, "/users/login", map[string]string{"email": "ann@x.com", "password": "wrongpass"})
		Expect(status).To(Equal(http.StatusUnauthorized))

		status, body = s.post(c, "/users/login", map[string]string{"email": "ann@x.com", "password": "secret123"})
		Expect(status).To(Equal(http.StatusOK))
		Expect(decodeUser(body)).To(HaveKeyWithValue("lastName", "Lee"))

		status, _ = s.me(c)
		Expect(status).To(Equal(http.StatusOK))
	})

	It("rejects a duplicate email with 409", func() {
		status, _ := s.post(s.client(), "/users/register", registration("dup@x.com"))
		Expect(status).To(Equal(http.StatusCreated))

		status, body := s.post(s.client(), "/users/register", registration("dup@x.com"))
		Expect(status).To(Equal(http.StatusConflict))
		Expect(string(body)).To(ContainSubstring("email already exists"))
	})

	It("lets exactly one of many concurrent registrations win", func() {
		const attempts = 8
		statuses := make([]int, attempts)

		var wg sync.WaitGroup
		for i := range attempts {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				statuses[i], _ = s.post(s.client(), "/users/register", registration("race@x.com"))
			}()
		}
		wg.Wait()

		Expect(statuses).To(HaveEach(BeElementOf(http.StatusCreated, http.StatusConflict)))
		created := 0
		for _, st := range statuses {
			if st == http.StatusCreated {
				created++
			}
		}
		Expect(created).To(Equal(1))
	})

	It("returns the same answer for an unknown email and a wrong password", func() {
		status, _ := s.post(s.client(), "/users/register", registration("known@x.com"))
		Expect(status).To(Equal(http.StatusCreated))

		unknownStatus, unknownBody := s.post(s.client(), "/users/login",
			map[string]string{"email": "nobody@x.com", "password": "secret123"})
		wrongStatus, wrongBody := s.post(s.client(), "/users/login",
			map[string]string{"email": "known@x.com", "password": "wrongpass"})

		Expect(unknownStatus).To(Equal(http.StatusUnauthorized))
		Expect(wrongStatus).To(Equal(unknownStatus))
		Expect(wrongBody).To(MatchJSON(unknownBody))
	})

	It("reports every invalid field at once", func() {
		status, body := s.post(s.client(), "/users/register", map[string]string{
			"firstName": "A",
			"lastName":  "B",
			"email":     "not-an-email",
			"password":  "short",
		})
		Expect(status).To(Equal(http.StatusBadRequest))

		var items []web.ErrorItem
		Expect(json.Unmarshal(body, &items)).To(Succeed())
		fields := make([]string, 0, len(items))
		for _, it := range items {
			fields = append(fields, it.Field)
		}
		Expect(fields).To(ConsistOf("firstName", "lastName", "email", "password"))
	})

	Describe("session expiry", func() {
		It("slides with activity and expires after a quiet day", func() {
			c := s.client()
			status, _ := s.post(c, "/users/register", registration("slide@x.com"))
			Expect(status).To(Equal(http.StatusCreated))

			s.clock.Advance(23 * time.Hour)
			status, _ = s.me(c)
			Expect(status).To(Equal(http.StatusOK))

			s.clock.Advance(23 * time.Hour)
			status, _ = s.me(c)
			Expect(status).To(Equal(http.StatusOK), "the previous request extended the session")

			s.clock.Advance(inactivityTTL + time.Minute)
			status, _ = s.me(c)
			Expect(status).To(Equal(http.StatusUnauthorized))
		})

		It("reaps only expired sessions", func() {
			stale := s.client()
			status, _ := s.post(stale, "/users/register", registration("stale@x.com"))
			Expect(status).To(Equal(http.StatusCreated))

			s.clock.Advance(inactivityTTL - time.Hour)

			fresh := s.client()
			status, _ = s.post(fresh, "/users/register", registration("fresh@x.com"))
			Expect(status).To(Equal(http.StatusCreated))

			s.clock.Advance(2 * time.Hour)

			deleted, err := s.sessions.DeleteExpired(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(Equal(int64(1)))

			status, _ = s.me(fresh)
			Expect(status).To(Equal(http.StatusOK))
			status, _ = s.me(stale)
			Expect(status).To(Equal(http.StatusUnauthorized))
		})
	})
})
