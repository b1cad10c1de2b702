// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_ObserveReap(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveReap(4, nil)
	m.ObserveReap(0, errors.New("db down"))
	m.ObserveReap(2, nil)

	assert.InDelta(t, 6, testutil.ToFloat64(m.SessionsReaped), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.ReaperRuns.WithLabelValues("ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ReaperRuns.WithLabelValues("error")), 0)
}

func TestMetrics_ObserveHash(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveHash("hash", 30*time.Millisecond)
	m.ObserveHash("verify", 10*time.Millisecond)
	m.ObserveHash("verify", 10*time.Millisecond)

	assert.Equal(t, 2, testutil.CollectAndCount(m.HashDuration))
}

func TestMetrics_RegisterTwicePanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)

	assert.Panics(t, func() { NewMetrics(reg) })
}
