// Package ratelimit implements the per-peer token-bucket limiter of spec.md
// §4.J. Grounded on bolt/middleware/ratelimit.go's lazy-map-of-limiters shape
// and original_source/selenia_core/src/ratelimit.rs's exact refill formula
// (tokens = min(capacity, tokens + elapsed_seconds*rate)).
package ratelimit

import (
	"sync"
	"time"
)

// DefaultCapacity and DefaultRefillPerSec are spec.md's defaults: capacity
// 60, refill 1/s.
const (
	DefaultCapacity      = 60.0
	DefaultRefillPerSec  = 1.0
	defaultCleanupPeriod = time.Minute
	defaultBucketMaxAge  = 5 * time.Minute
)

// bucket is the per-peer token bucket (spec.md §3 "Rate bucket").
type bucket struct {
	mu     sync.Mutex
	tokens float64
	last   time.Time
}

func (b *bucket) allow(capacity, rate float64, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * rate
		if b.tokens > capacity {
			b.tokens = capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Limiter is a process-wide (or per-listener) token-bucket limiter keyed by
// peer IP string. The zero value is not usable; build one with New.
type Limiter struct {
	capacity float64
	rate     float64

	mu      sync.RWMutex
	buckets map[string]*bucketEntry

	cleanupPeriod time.Duration
	maxAge        time.Duration
	stop          chan struct{}
	stopOnce      sync.Once
}

type bucketEntry struct {
	b          *bucket
	lastSeenMu sync.Mutex
	lastSeen   time.Time
}

// New creates a Limiter with the given capacity and refill-per-second rate.
// A background goroutine evicts buckets unseen for longer than maxAge every
// cleanupPeriod, so peers that stop sending traffic do not leak memory
// forever (the spec's skiplist/DNS cache uses the same periodic-cleanup
// shape; this limiter borrows it for its own map).
func New(capacity, refillPerSec float64) *Limiter {
	l := &Limiter{
		capacity:      capacity,
		rate:          refillPerSec,
		buckets:       make(map[string]*bucketEntry),
		cleanupPeriod: defaultCleanupPeriod,
		maxAge:        defaultBucketMaxAge,
		stop:          make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// NewDefault builds a Limiter with spec.md's defaults (60 capacity, 1/s
// refill).
func NewDefault() *Limiter {
	return New(DefaultCapacity, DefaultRefillPerSec)
}

// Allow reports whether the peer identified by key (typically its IP) may
// proceed, consuming one token if so.
func (l *Limiter) Allow(key string) bool {
	return l.AllowAt(key, time.Now())
}

// AllowAt is Allow with an explicit clock, for deterministic tests.
func (l *Limiter) AllowAt(key string, now time.Time) bool {
	l.mu.RLock()
	e, ok := l.buckets[key]
	l.mu.RUnlock()
	if !ok {
		l.mu.Lock()
		if e, ok = l.buckets[key]; !ok {
			e = &bucketEntry{b: &bucket{tokens: l.capacity, last: now}, lastSeen: now}
			l.buckets[key] = e
		}
		l.mu.Unlock()
	}
	e.lastSeenMu.Lock()
	e.lastSeen = now
	e.lastSeenMu.Unlock()
	return e.b.allow(l.capacity, l.rate, now)
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.cleanup(now)
		}
	}
}

func (l *Limiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, e := range l.buckets {
		e.lastSeenMu.Lock()
		stale := now.Sub(e.lastSeen) > l.maxAge
		e.lastSeenMu.Unlock()
		if stale {
			delete(l.buckets, k)
		}
	}
}

// Close stops the background cleanup goroutine. Safe to call more than
// once.
func (l *Limiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}
