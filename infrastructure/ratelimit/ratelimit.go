// Package ratelimit provides a token-bucket limiter built on
// golang.org/x/time/rate, used to bound the rate of script-triggered
// side effects (currently debug.log/warn/error, §6) that could otherwise
// flood stdout/structured-log output from thousands of concurrent VUs.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config configures a Limiter.
type Config struct {
	EventsPerSecond float64
	Burst           int
}

// DefaultConfig caps debug-log volume at a sane default: scripts that log
// on every iteration across hundreds of VUs would otherwise overwhelm the
// logger.
func DefaultConfig() Config {
	return Config{
		EventsPerSecond: 100,
		Burst:           200,
	}
}

// Limiter is a reusable, resettable token-bucket limiter.
type Limiter struct {
	mu      sync.RWMutex
	limiter *rate.Limiter
	config  Config
}

// New builds a Limiter from cfg. A non-positive EventsPerSecond becomes 100
// (DefaultConfig's rate); a non-positive Burst becomes twice the resulting
// rate.
func New(cfg Config) *Limiter {
	if cfg.EventsPerSecond <= 0 {
		cfg.EventsPerSecond = 100
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.EventsPerSecond * 2)
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.EventsPerSecond), cfg.Burst),
		config:  cfg,
	}
}

// Allow reports whether one event may proceed now, consuming a token if so.
func (l *Limiter) Allow() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.limiter.Allow()
}

// AllowN reports whether n events may proceed at now.
func (l *Limiter) AllowN(now time.Time, n int) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.limiter.AllowN(now, n)
}

// Wait blocks until an event may proceed or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.RLock()
	limiter := l.limiter
	l.mu.RUnlock()
	return limiter.Wait(ctx)
}

// Reset clears accumulated burst credit, starting a fresh window.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiter = rate.NewLimiter(rate.Limit(l.config.EventsPerSecond), l.config.Burst)
}
