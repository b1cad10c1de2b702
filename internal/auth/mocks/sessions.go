// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mocks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/holomush/authd/internal/auth"
)

// MockSessionRepository is a mock auth.SessionRepository.
type MockSessionRepository struct {
	mock.Mock
}

// NewMockSessionRepository creates a mock that asserts its expectations on cleanup.
func NewMockSessionRepository(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockSessionRepository {
	m := &MockSessionRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSessionRepository) Create(ctx context.Context, session *auth.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	args := m.Called(ctx, tokenHash)
	session, _ := args.Get(0).(*auth.Session)
	return session, args.Error(1)
}

func (m *MockSessionRepository) SetAttribute(ctx context.Context, tokenHash, key string, value json.RawMessage, now, expiresAt time.Time) error {
	return m.Called(ctx, tokenHash, key, value, now, expiresAt).Error(0)
}

func (m *MockSessionRepository) Touch(ctx context.Context, tokenHash string, now, expiresAt time.Time) error {
	return m.Called(ctx, tokenHash, now, expiresAt).Error(0)
}

func (m *MockSessionRepository) Delete(ctx context.Context, tokenHash string) error {
	return m.Called(ctx, tokenHash).Error(0)
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

// MockSessionData is a mock auth.SessionData.
type MockSessionData struct {
	mock.Mock
}

// NewMockSessionData creates a mock that asserts its expectations on cleanup.
func NewMockSessionData(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockSessionData {
	m := &MockSessionData{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSessionData) Get(ctx context.Context, key string, dst any) (bool, error) {
	args := m.Called(ctx, key, dst)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionData) Insert(ctx context.Context, key string, value any) error {
	return m.Called(ctx, key, value).Error(0)
}

func (m *MockSessionData) Renew(ctx context.Context, key string, value any) error {
	return m.Called(ctx, key, value).Error(0)
}

func (m *MockSessionData) Flush(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

var (
	_ auth.SessionRepository = (*MockSessionRepository)(nil)
	_ auth.SessionData       = (*MockSessionData)(nil)
)
