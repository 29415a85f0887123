// Package ratelimit provides an in-process sliding-window rate limiter.
//
// A single Limiter instance is shared by every import job's metadata
// enrichment calls, so no job can starve another of provider quota.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter counts calls per key within a fixed window.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	maxCalls int
	interval time.Duration

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

type window struct {
	count int
	start time.Time
}

// Config contains configuration for the limiter.
type Config struct {
	MaxCalls        int           // Calls allowed per key per window (default: 60)
	Window          time.Duration // Window duration (default: 1m)
	CleanupInterval time.Duration // How often expired windows are dropped (default: 5m)
}

// DefaultConfig returns sensible defaults for external API calls.
func DefaultConfig() Config {
	return Config{
		MaxCalls:        60,
		Window:          time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// NewLimiter creates a limiter and starts its background cleanup loop.
func NewLimiter(cfg Config) *Limiter {
	if cfg.MaxCalls <= 0 {
		cfg.MaxCalls = 60
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}

	l := &Limiter{
		windows:         make(map[string]*window),
		maxCalls:        cfg.MaxCalls,
		interval:        cfg.Window,
		cleanupInterval: cfg.CleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Stop stops the background cleanup goroutine.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCleanup)
	})
}

// Allow reports whether a call for key may proceed now and consumes one
// slot if so. When denied, retryAfter indicates when the window resets.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, exists := l.windows[key]
	if !exists || now.Sub(w.start) >= l.interval {
		l.windows[key] = &window{count: 1, start: now}
		return true, 0
	}

	if w.count < l.maxCalls {
		w.count++
		return true, 0
	}

	return false, w.start.Add(l.interval).Sub(now)
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *Limiter) cleanup() {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.windows {
		if now.Sub(w.start) >= l.interval {
			delete(l.windows, key)
		}
	}
}
