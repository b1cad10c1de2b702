// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigValidator_RegistersListenAddr(t *testing.T) {
	v, err := newConfigValidator()
	require.NoError(t, err)
	require.NotNil(t, v)

	tests := []struct {
		addr  string
		valid bool
	}{
		{addr: "127.0.0.1:8000", valid: true},
		{addr: ":0", valid: true},
		{addr: "[::1]:9100", valid: true},
		{addr: "localhost", valid: false},
		{addr: "", valid: false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			err := v.Var(tt.addr, "listen_addr")
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestConfigValidator_IsShared(t *testing.T) {
	first, err := configValidator()
	require.NoError(t, err)
	second, err := configValidator()
	require.NoError(t, err)
	assert.Same(t, first, second)
}
