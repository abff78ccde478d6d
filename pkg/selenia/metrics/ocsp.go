// ocsp.go implements spec.md §4.O's OCSP staple cache: a DER file loaded
// once at startup with a caller-supplied validity window, refreshed
// periodically in the background, retaining the prior staple on failure.
//
// Grounded on original_source/selenia_core/src/crypto/ocsp.rs.
package metrics

import (
	"os"
	"sync"
	"time"
)

// OCSPStaple is a cached DER-encoded OCSP response with an expiry.
type OCSPStaple struct {
	DER       []byte
	ExpiresAt time.Time
}

// Valid reports whether the staple has not yet expired.
func (s OCSPStaple) Valid() bool { return time.Now().Before(s.ExpiresAt) }

// OCSPCache holds the current staple, process-wide, guarded by a RWMutex
// (spec.md §5: "writers take a read-write lock; readers take shared
// locks").
type OCSPCache struct {
	mu      sync.RWMutex
	current *OCSPStaple

	stop     chan struct{}
	stopOnce sync.Once
}

var (
	ocspOnce sync.Once
	ocsp     *OCSPCache
)

// DefaultOCSPCache returns the process-wide OCSPCache, created lazily.
func DefaultOCSPCache() *OCSPCache {
	ocspOnce.Do(func() { ocsp = &OCSPCache{stop: make(chan struct{})} })
	return ocsp
}

// Load reads path as a DER file and installs it as the current staple, valid
// for validFor.
func (c *OCSPCache) Load(path string, validFor time.Duration) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	staple := &OCSPStaple{DER: data, ExpiresAt: time.Now().Add(validFor)}
	c.mu.Lock()
	c.current = staple
	c.mu.Unlock()
	return nil
}

// Get returns the current staple's DER bytes if it is still valid.
func (c *OCSPCache) Get() ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil || !c.current.Valid() {
		return nil, false
	}
	return c.current.DER, true
}

// StartAutoRefresh spawns a background goroutine that reloads path every
// refreshEvery, each load valid for validFor. On a failed reload it logs
// nothing itself (the caller wires a Logger via onError) and keeps serving
// the previous staple.
func (c *OCSPCache) StartAutoRefresh(path string, refreshEvery, validFor time.Duration, onError func(error)) {
	go func() {
		ticker := time.NewTicker(refreshEvery)
		defer ticker.Stop()
		if err := c.Load(path, validFor); err != nil && onError != nil {
			onError(err)
		}
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				if err := c.Load(path, validFor); err != nil && onError != nil {
					onError(err)
				}
			}
		}
	}()
}

// Close stops the background refresh goroutine. Safe to call more than
// once.
func (c *OCSPCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}
