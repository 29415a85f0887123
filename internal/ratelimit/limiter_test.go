package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterAllow(t *testing.T) {
	t.Run("allows up to the limit then denies", func(t *testing.T) {
		l := NewLimiter(Config{MaxCalls: 3, Window: time.Minute})
		defer l.Stop()

		for i := 0; i < 3; i++ {
			allowed, _ := l.Allow("openlibrary")
			assert.True(t, allowed, "call %d should be allowed", i+1)
		}

		allowed, retryAfter := l.Allow("openlibrary")
		assert.False(t, allowed)
		assert.Greater(t, retryAfter, time.Duration(0))
		assert.LessOrEqual(t, retryAfter, time.Minute)
	})

	t.Run("keys have independent windows", func(t *testing.T) {
		l := NewLimiter(Config{MaxCalls: 1, Window: time.Minute})
		defer l.Stop()

		allowed, _ := l.Allow("openlibrary")
		assert.True(t, allowed)
		allowed, _ = l.Allow("openlibrary")
		assert.False(t, allowed)

		allowed, _ = l.Allow("googlebooks")
		assert.True(t, allowed)
	})

	t.Run("window expiry resets the quota", func(t *testing.T) {
		l := NewLimiter(Config{MaxCalls: 1, Window: 30 * time.Millisecond})
		defer l.Stop()

		allowed, _ := l.Allow("openlibrary")
		assert.True(t, allowed)
		allowed, _ = l.Allow("openlibrary")
		assert.False(t, allowed)

		time.Sleep(40 * time.Millisecond)

		allowed, _ = l.Allow("openlibrary")
		assert.True(t, allowed)
	})
}

func TestLimiterDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 60, cfg.MaxCalls)
	assert.Equal(t, time.Minute, cfg.Window)

	// Zero values fall back to defaults rather than a limiter that
	// denies everything.
	l := NewLimiter(Config{})
	defer l.Stop()
	allowed, _ := l.Allow("openlibrary")
	assert.True(t, allowed)
}

func TestLimiterStopIsIdempotent(t *testing.T) {
	l := NewLimiter(DefaultConfig())
	l.Stop()
	l.Stop()
}
