// Package ratelimit provides a process-wide sliding window limiter for outbound upstream calls.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultMaxCalls is the default number of calls admitted per window
	DefaultMaxCalls = 30

	// DefaultWindow is the default sliding window length
	DefaultWindow = time.Second

	// PollInterval is the backoff between admission attempts in Wait
	PollInterval = 100 * time.Millisecond
)

// Limiter admits at most maxCalls calls within any trailing window.
// One instance is shared by every caller; there is no per-caller accounting and no fairness.
type Limiter struct {
	mu       sync.Mutex
	maxCalls int
	window   time.Duration
	calls    []time.Time
	now      func() time.Time
	poll     time.Duration
}

// Option configures a Limiter
type Option func(*Limiter)

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithPollInterval overrides the Wait backoff
func WithPollInterval(d time.Duration) Option {
	return func(l *Limiter) {
		l.poll = d
	}
}

// New creates a limiter admitting maxCalls per window
func New(maxCalls int, window time.Duration, opts ...Option) *Limiter {
	if maxCalls <= 0 {
		maxCalls = DefaultMaxCalls
	}
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Limiter{
		maxCalls: maxCalls,
		window:   window,
		calls:    make([]time.Time, 0, maxCalls),
		now:      time.Now,
		poll:     PollInterval,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TryAcquire records a call and returns true if fewer than maxCalls calls remain in the window.
// It never blocks and has no side effect when it returns false.
func (l *Limiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	kept := l.calls[:0]
	for _, c := range l.calls {
		if now.Sub(c) < l.window {
			kept = append(kept, c)
		}
	}
	l.calls = kept

	if len(l.calls) >= l.maxCalls {
		return false
	}
	l.calls = append(l.calls, now)
	return true
}

// Wait polls TryAcquire until admitted or the context is done
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		if l.TryAcquire() {
			return nil
		}
		timer := time.NewTimer(l.poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Do waits for admission and then runs op
func (l *Limiter) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if err := l.Wait(ctx); err != nil {
		return err
	}
	return op(ctx)
}

// InFlight returns the number of calls recorded in the current window
func (l *Limiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	n := 0
	for _, c := range l.calls {
		if now.Sub(c) < l.window {
			n++
		}
	}
	return n
}
