// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/holomush/authd/pkg/errutil"
)

// ExpiredSessionDeleter removes expired sessions in bulk.
type ExpiredSessionDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// ReaperObserver receives the outcome of every reaper run.
type ReaperObserver func(deleted int64, err error)

// ReaperOption configures a Reaper.
type ReaperOption func(*Reaper)

// WithReaperRetry sets the backoff applied to a failing run. A run makes at
// most maxRetries additional attempts, starting base apart and doubling.
func WithReaperRetry(base time.Duration, maxRetries uint64) ReaperOption {
	return func(r *Reaper) {
		r.retryBase = base
		r.maxRetries = maxRetries
	}
}

// WithReaperObserver registers an observer for run outcomes.
func WithReaperObserver(obs ReaperObserver) ReaperOption {
	return func(r *Reaper) {
		r.observe = obs
	}
}

// Reaper periodically deletes expired sessions. A failed run is retried
// with backoff, then logged; the reaper keeps running either way.
type Reaper struct {
	sessions   ExpiredSessionDeleter
	interval   time.Duration
	logger     *slog.Logger
	retryBase  time.Duration
	maxRetries uint64
	observe    ReaperObserver

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewReaper creates a Reaper that runs every interval once started.
func NewReaper(sessions ExpiredSessionDeleter, interval time.Duration, logger *slog.Logger, opts ...ReaperOption) (*Reaper, error) {
	if sessions == nil {
		return nil, oops.Errorf("session store is required")
	}
	if interval <= 0 {
		return nil, oops.With("interval", interval).Errorf("reap interval must be positive")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}

	r := &Reaper{
		sessions:   sessions,
		interval:   interval,
		logger:     logger,
		retryBase:  time.Second,
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.retryBase <= 0 {
		return nil, oops.With("retry_base", r.retryBase).Errorf("retry base must be positive")
	}
	return r, nil
}

// Start launches the background loop. It runs once immediately and then on
// every tick until ctx is cancelled or Stop is called.
func (r *Reaper) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done != nil {
		return oops.Errorf("reaper already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.loop(ctx, r.done)

	r.logger.Info("session reaper started", "interval", r.interval.String())
	return nil
}

// Stop cancels the loop and waits for an in-flight run to return.
// Safe to call when not running.
func (r *Reaper) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	r.logger.Info("session reaper stopped")
}

func (r *Reaper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.runLogged(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Reaper) runLogged(ctx context.Context) {
	deleted, err := r.RunOnce(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		errutil.LogError(r.logger.With("next_run_in", r.interval.String()), "session reaper run failed", err)
		return
	}
	r.logger.Debug("session reaper run completed", "deleted", deleted)
}

// RunOnce deletes expired sessions, retrying transient failures.
func (r *Reaper) RunOnce(ctx context.Context) (int64, error) {
	backoff := retry.WithMaxRetries(r.maxRetries, retry.NewExponential(r.retryBase))

	deleted, err := retry.DoValue(ctx, backoff, func(ctx context.Context) (int64, error) {
		n, err := r.sessions.DeleteExpired(ctx)
		if err != nil {
			r.logger.Warn("session reaper attempt failed", "error", err)
			return 0, retry.RetryableError(err)
		}
		return n, nil
	})

	if r.observe != nil {
		r.observe(deleted, err)
	}
	if err != nil {
		return 0, oops.In("reaper").With("operation", "delete expired sessions").Wrap(err)
	}
	return deleted, nil
}
