// Package ratelimit bounds request volume per client key over a fixed
// window. State is process-local; the window resets lazily on the first
// request past its end rather than by a background sweep.
package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	count int
	start time.Time
}

type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// SecondsUntilReset reports how long a rejected client should wait.
func (r Result) SecondsUntilReset() float64 {
	return time.Until(r.ResetAt).Seconds()
}

type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	length  time.Duration
	now     func() time.Time
}

func NewLimiter(limit int, length time.Duration) *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		limit:   limit,
		length:  length,
		now:     time.Now,
	}
}

// Allow performs an atomic check-and-increment for key. The mutex covers
// both steps so concurrent requests cannot slip between the check and the
// increment and undercount.
func (l *Limiter) Allow(key string) (bool, Result) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.length {
		w = &window{start: now}
		l.windows[key] = w
	}

	res := Result{
		Limit:   l.limit,
		ResetAt: w.start.Add(l.length),
	}

	if w.count >= l.limit {
		res.Remaining = 0
		return false, res
	}

	w.count++
	res.Remaining = l.limit - w.count
	return true, res
}
