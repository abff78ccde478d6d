// keepalive.go implements the adaptive Keep-Alive tuning named in spec.md's
// concurrency model: a lightweight heuristic (not a predictive model) that
// widens or narrows the advertised Keep-Alive timeout/max based on the
// recent ratio of reused requests to new connections, smoothed by an EMA so
// values do not oscillate under bursty traffic.
//
// Grounded on original_source/selenia_http/src/keepalive.rs, translated
// from global atomics gated by a compare-exchange "who evaluates this tick"
// lock into the same shape using sync/atomic.
package engine

import (
	"sync/atomic"
	"time"
)

const (
	keepaliveTimeoutMin = 10
	keepaliveTimeoutMax = 120
	keepaliveMaxMin     = 50
	keepaliveMaxMax     = 500

	keepaliveAlpha      = 0.2
	keepalivePeriod     = 5 * time.Second
)

// KeepAliveTuner tracks connection-reuse statistics process-wide (one
// instance is normally shared across all listeners in a worker) and derives
// the Keep-Alive timeout/max values to advertise.
type KeepAliveTuner struct {
	newConn  atomic.Int64
	reuseReq atomic.Int64

	timeoutCur atomic.Int64 // seconds, stored as int64 for atomic access
	maxCur     atomic.Int64

	lastEval atomic.Int64 // UnixNano of the last evaluation
	start    time.Time
}

// NewKeepAliveTuner creates a tuner starting at the original's defaults:
// 30s timeout, max 100 requests per connection.
func NewKeepAliveTuner() *KeepAliveTuner {
	t := &KeepAliveTuner{start: time.Now()}
	t.timeoutCur.Store(30)
	t.maxCur.Store(100)
	return t
}

func (t *KeepAliveTuner) nowMillis() int64 {
	return time.Since(t.start).Milliseconds()
}

// RecordNewConn records a freshly accepted TCP connection.
func (t *KeepAliveTuner) RecordNewConn() {
	t.newConn.Add(1)
	t.maybeEval()
}

// RecordReuseRequest records a request served on an already-open keep-alive
// connection (i.e. not the connection's first request).
func (t *KeepAliveTuner) RecordReuseRequest() {
	t.reuseReq.Add(1)
	t.maybeEval()
}

// Current returns the currently advertised (timeout, max) pair.
func (t *KeepAliveTuner) Current() (timeout time.Duration, max int) {
	return time.Duration(t.timeoutCur.Load()) * time.Second, int(t.maxCur.Load())
}

func (t *KeepAliveTuner) maybeEval() {
	last := t.lastEval.Load()
	now := t.nowMillis()
	if now-last < keepalivePeriod.Milliseconds() {
		return
	}
	if !t.lastEval.CompareAndSwap(last, now) {
		// Another goroutine is performing this tick's evaluation.
		return
	}

	newConns := float64(t.newConn.Swap(0))
	reused := float64(t.reuseReq.Swap(0))

	ratio := 0.0
	if newConns >= 1.0 {
		ratio = reused / newConns
	}

	curTimeout := t.timeoutCur.Load()
	curMax := t.maxCur.Load()

	var targetTimeout, targetMax int64
	switch {
	case ratio > 1.5:
		targetTimeout, targetMax = keepaliveTimeoutMax, keepaliveMaxMax
	case ratio < 0.5:
		targetTimeout, targetMax = keepaliveTimeoutMin, keepaliveMaxMin
	default:
		targetTimeout, targetMax = curTimeout, curMax
	}

	newTimeout := (1.0-keepaliveAlpha)*float64(curTimeout) + keepaliveAlpha*float64(targetTimeout)
	newMax := (1.0-keepaliveAlpha)*float64(curMax) + keepaliveAlpha*float64(targetMax)

	t.timeoutCur.Store(roundToInt64(newTimeout))
	t.maxCur.Store(roundToInt64(newMax))
}

func roundToInt64(f float64) int64 {
	return int64(f + 0.5)
}
