// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the Prometheus collectors for authd.
type Metrics struct {
	AuthAttempts   *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	HashDuration   *prometheus.HistogramVec
	ReaperRuns     *prometheus.CounterVec
	SessionsReaped prometheus.Counter
}

// NewMetrics creates and registers the authd collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authd_auth_attempts_total",
				Help: "Total number of register, login and logout attempts by outcome",
			},
			[]string{"op", "result"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authd_http_requests_total",
				Help: "Total number of HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authd_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		HashDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authd_password_hash_duration_seconds",
				Help:    "Time spent hashing or verifying passwords",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
			},
			[]string{"op"},
		),
		ReaperRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authd_session_reaper_runs_total",
				Help: "Total number of expired-session sweeps by result",
			},
			[]string{"result"},
		),
		SessionsReaped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "authd_sessions_reaped_total",
				Help: "Total number of expired sessions deleted",
			},
		),
	}

	reg.MustRegister(
		m.AuthAttempts,
		m.HTTPRequests,
		m.HTTPDuration,
		m.HashDuration,
		m.ReaperRuns,
		m.SessionsReaped,
	)

	return m
}

// RecordAuth counts an auth operation. result is "ok" or an error code.
func (m *Metrics) RecordAuth(op, result string) {
	m.AuthAttempts.WithLabelValues(op, result).Inc()
}

// ObserveHTTP records a completed request.
func (m *Metrics) ObserveHTTP(route string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveHash records a hash pool operation. It matches auth.HashObserver.
func (m *Metrics) ObserveHash(op string, d time.Duration) {
	m.HashDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveReap records a reaper run. It matches auth.ReaperObserver.
func (m *Metrics) ObserveReap(deleted int64, err error) {
	if err != nil {
		m.ReaperRuns.WithLabelValues("error").Inc()
		return
	}
	m.ReaperRuns.WithLabelValues("ok").Inc()
	m.SessionsReaped.Add(float64(deleted))
}
