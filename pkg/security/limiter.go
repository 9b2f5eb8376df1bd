// Package security implements the admission gate that every query passes
// before any model call: a sliding-window rate limiter and content screening
// for personal data, credentials and prompt injection.
package security

import (
	"sync"
	"time"
)

// Limiter defaults.
const (
	DefaultWindow      = 60 * time.Second
	DefaultMaxRequests = 10
)

// Clock provides the current time. Tests inject a fake.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

// Now returns time.Now().
func (RealClock) Now() time.Time { return time.Now() }

// SlidingWindowLimiter admits at most maxRequests queries in any trailing window.
type SlidingWindowLimiter struct {
	mu          sync.Mutex
	clock       Clock
	window      time.Duration
	maxRequests int
	timestamps  []time.Time
}

// NewSlidingWindowLimiter creates a limiter. Non-positive arguments fall back
// to the defaults and a nil clock uses the system clock.
func NewSlidingWindowLimiter(window time.Duration, maxRequests int, clock Clock) *SlidingWindowLimiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &SlidingWindowLimiter{
		clock:       clock,
		window:      window,
		maxRequests: maxRequests,
		timestamps:  make([]time.Time, 0, maxRequests),
	}
}

// Allow reports whether a query may proceed and records it if so.
// Rejected attempts are not recorded, so they do not extend the lockout.
func (l *SlidingWindowLimiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.pruneLocked(now)

	if len(l.timestamps) >= l.maxRequests {
		return false
	}
	l.timestamps = append(l.timestamps, now)
	return true
}

// Len returns the number of admissions still inside the window.
func (l *SlidingWindowLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(l.clock.Now())
	return len(l.timestamps)
}

// pruneLocked drops timestamps that are window or more old.
func (l *SlidingWindowLimiter) pruneLocked(now time.Time) {
	cutoff := 0
	for cutoff < len(l.timestamps) && now.Sub(l.timestamps[cutoff]) >= l.window {
		cutoff++
	}
	if cutoff > 0 {
		l.timestamps = append(l.timestamps[:0], l.timestamps[cutoff:]...)
	}
}
