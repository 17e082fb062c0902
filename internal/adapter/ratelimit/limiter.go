package ratelimit

import (
	"sync"
	"time"

	"currency-converter/internal/domain/model"
	"currency-converter/pkg/logger"
)

const (
	DefaultWindow          = 24 * time.Hour
	DefaultCleanupInterval = 5 * time.Minute
	DefaultGracePeriod     = 24 * time.Hour
)

type Config struct {
	DailyLimit      int
	Window          time.Duration
	CleanupInterval time.Duration
	GracePeriod     time.Duration
}

type rateLimitInfo struct {
	count       int
	windowStart time.Time
}

// Limiter enforces a per-key quota over a rolling window. A single mutex
// guards the map, so increments and the cleanup sweep never interleave.
type Limiter struct {
	mutex       sync.Mutex
	limits      map[string]*rateLimitInfo
	lastCleanup time.Time
	cfg         Config
	now         func() time.Time
	log         *logger.Logger
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func NewLimiter(cfg Config, log *logger.Logger, opts ...Option) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}

	l := &Limiter{
		limits: make(map[string]*rateLimitInfo),
		cfg:    cfg,
		now:    time.Now,
		log:    log,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lastCleanup = l.now()
	return l
}

// CheckAndIncrement consumes one unit of key's quota and returns what is left.
// An exhausted key fails with a local rate-limit error and is not incremented.
func (l *Limiter) CheckAndIncrement(key string) (int, error) {
	now := l.now()

	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.cleanupLocked(now, false)

	info, ok := l.limits[key]
	if !ok {
		info = &rateLimitInfo{windowStart: now}
		l.limits[key] = info
	}

	if now.Sub(info.windowStart) > l.cfg.Window {
		info.count = 0
		info.windowStart = now
	}

	if info.count >= l.cfg.DailyLimit {
		l.log.Warn("Rate limit exceeded", "key", key, "count", info.count, "limit", l.cfg.DailyLimit)
		return 0, model.LocalRateLimit(key)
	}

	info.count++
	remaining := l.cfg.DailyLimit - info.count
	l.log.Debug("Rate limit check passed", "key", key, "count", info.count, "limit", l.cfg.DailyLimit)
	return remaining, nil
}

// Remaining reports the quota left for key without consuming any.
func (l *Limiter) Remaining(key string) int {
	now := l.now()

	l.mutex.Lock()
	defer l.mutex.Unlock()

	info, ok := l.limits[key]
	if !ok || now.Sub(info.windowStart) > l.cfg.Window {
		return l.cfg.DailyLimit
	}
	if info.count >= l.cfg.DailyLimit {
		return 0
	}
	return l.cfg.DailyLimit - info.count
}

// Cleanup forces a sweep of stale keys regardless of the cleanup interval.
func (l *Limiter) Cleanup() int {
	now := l.now()

	l.mutex.Lock()
	defer l.mutex.Unlock()

	return l.cleanupLocked(now, true)
}

func (l *Limiter) Len() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return len(l.limits)
}

func (l *Limiter) cleanupLocked(now time.Time, force bool) int {
	if !force && now.Sub(l.lastCleanup) < l.cfg.CleanupInterval {
		return 0
	}
	l.lastCleanup = now

	staleAfter := l.cfg.Window + l.cfg.GracePeriod
	removed := 0
	for key, info := range l.limits {
		if now.Sub(info.windowStart) > staleAfter {
			delete(l.limits, key)
			removed++
		}
	}

	if removed > 0 {
		l.log.Debug("Removed stale rate limit entries", "count", removed)
	}
	return removed
}
