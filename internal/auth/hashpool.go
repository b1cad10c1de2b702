// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"
)

// AsyncHasher hashes and verifies passwords off the caller's goroutine.
// The caller blocks until the result is ready or ctx is done.
type AsyncHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, hash string) (bool, error)
}

// ErrHashPoolClosed is returned when submitting work to a closed HashPool.
var ErrHashPoolClosed = oops.Code("AUTH_HASH_POOL_CLOSED").Errorf("hash pool is closed")

// HashObserver receives the duration of every completed hash operation.
// op is "hash" or "verify".
type HashObserver func(op string, d time.Duration)

// HashPoolOption configures a HashPool.
type HashPoolOption func(*HashPool)

// WithHashObserver registers an observer for hash durations.
func WithHashObserver(obs HashObserver) HashPoolOption {
	return func(p *HashPool) {
		p.observe = obs
	}
}

// HashPool runs a PasswordHasher on a fixed number of worker goroutines
// fed by a bounded queue, keeping CPU-heavy argon2 work off request goroutines.
type HashPool struct {
	hasher  PasswordHasher
	jobs    chan func()
	observe HashObserver

	mu     sync.RWMutex
	closed bool
	once   sync.Once
	wg     sync.WaitGroup
}

// NewHashPool starts workers goroutines draining a queue of the given size.
func NewHashPool(hasher PasswordHasher, workers, queue int, opts ...HashPoolOption) (*HashPool, error) {
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if workers < 1 {
		return nil, oops.With("workers", workers).Errorf("hash pool needs at least one worker")
	}
	if queue < 0 {
		return nil, oops.With("queue", queue).Errorf("hash pool queue size cannot be negative")
	}

	p := &HashPool{
		hasher: hasher,
		jobs:   make(chan func(), queue),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.wg.Add(workers)
	for range workers {
		go p.work()
	}
	return p, nil
}

func (p *HashPool) work() {
	defer p.wg.Done()
	for job := range p.jobs {
		job()
	}
}

// Hash hashes password on a pool worker.
func (p *HashPool) Hash(ctx context.Context, password string) (string, error) {
	return runPooled(ctx, p, "hash", func() (string, error) {
		return p.hasher.Hash(password)
	})
}

// Verify checks password against hash on a pool worker.
func (p *HashPool) Verify(ctx context.Context, password, hash string) (bool, error) {
	return runPooled(ctx, p, "verify", func() (bool, error) {
		return p.hasher.Verify(password, hash)
	})
}

// Close stops accepting work, lets queued jobs finish and waits for workers.
// Safe to call more than once.
func (p *HashPool) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.jobs)
		p.mu.Unlock()
		p.wg.Wait()
	})
}

type pooledResult[T any] struct {
	val T
	err error
}

func runPooled[T any](ctx context.Context, p *HashPool, op string, fn func() (T, error)) (T, error) {
	var zero T
	// Buffered so a worker never blocks on a caller that stopped waiting.
	results := make(chan pooledResult[T], 1)

	job := func() {
		if ctx.Err() != nil {
			results <- pooledResult[T]{err: ctx.Err()}
			return
		}
		start := time.Now()
		val, err := fn()
		if p.observe != nil {
			p.observe(op, time.Since(start))
		}
		results <- pooledResult[T]{val: val, err: err}
	}

	if err := p.submit(ctx, job); err != nil {
		return zero, err
	}

	select {
	case r := <-results:
		return r.val, r.err
	case <-ctx.Done():
		return zero, oops.Code("AUTH_HASH_CANCELLED").With("operation", op).Wrap(ctx.Err())
	}
}

func (p *HashPool) submit(ctx context.Context, job func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrHashPoolClosed
	}

	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return oops.Code("AUTH_HASH_CANCELLED").With("operation", "enqueue").Wrap(ctx.Err())
	}
}

var _ AsyncHasher = (*HashPool)(nil)
