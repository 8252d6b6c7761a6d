package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_AllowUpToLimit(t *testing.T) {
	l := NewLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		allowed, res := l.Allow("client-a")
		assert.True(t, allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 3, res.Limit)
		assert.Equal(t, 2-i, res.Remaining)
	}

	allowed, res := l.Allow("client-a")
	assert.False(t, allowed)
	assert.Equal(t, 0, res.Remaining)
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := NewLimiter(1, time.Minute)

	allowed, _ := l.Allow("client-a")
	assert.True(t, allowed)
	allowed, _ = l.Allow("client-a")
	assert.False(t, allowed)

	allowed, _ = l.Allow("client-b")
	assert.True(t, allowed)
}

func TestLimiter_WindowResetsLazily(t *testing.T) {
	now := time.Now()
	l := NewLimiter(1, time.Minute)
	l.now = func() time.Time { return now }

	allowed, _ := l.Allow("client-a")
	assert.True(t, allowed)
	allowed, _ = l.Allow("client-a")
	assert.False(t, allowed)

	// First access past the window end resets the counter.
	now = now.Add(time.Minute)
	allowed, res := l.Allow("client-a")
	assert.True(t, allowed)
	assert.Equal(t, now.Add(time.Minute), res.ResetAt)
}

func TestLimiter_ConcurrentCheckAndIncrement(t *testing.T) {
	const limit = 50
	const attempts = 200

	l := NewLimiter(limit, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if allowed, _ := l.Allow("client-a"); allowed {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Exactly the limit passes: no undercounting window between check and
	// increment.
	assert.Equal(t, limit, allowedCount)
}
