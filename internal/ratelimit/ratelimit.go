// Package ratelimit provides the per-source request throttle used by the
// payment webhook. The limiter sits behind a one-method interface so a shared
// backend (e.g. Redis) can replace the in-process map when the service is
// scaled horizontally; the in-process window under-counts across instances.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter reports whether a request from source may proceed, recording it if
// allowed.
type Limiter interface {
	Allow(source string) bool
}

// SlidingWindow allows at most Max requests per source within the trailing
// Window. Timestamps older than the window are pruned lazily on access.
type SlidingWindow struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	sources map[string][]time.Time

	now func() time.Time // injectable for tests
}

func NewSlidingWindow(max int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		max:     max,
		window:  window,
		sources: make(map[string][]time.Time),
		now:     time.Now,
	}
}

func (l *SlidingWindow) Allow(source string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.sources[source][:0]
	for _, ts := range l.sources[source] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.max {
		l.sources[source] = kept
		return false
	}

	l.sources[source] = append(kept, now)
	return true
}
