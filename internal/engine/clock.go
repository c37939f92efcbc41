package engine

import (
	"time"

	timecache "github.com/agilira/go-timecache"
)

// ClockResolution is the refresh interval of the cached clock.
const ClockResolution = 10 * time.Millisecond

// Clock stamps entries.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock on every call.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// CachedClock serves a timestamp refreshed in the background, so stamping
// an entry costs an atomic load instead of a syscall.
type CachedClock struct {
	tc *timecache.TimeCache
}

// NewCachedClock starts a cached clock ticking at resolution.
func NewCachedClock(resolution time.Duration) *CachedClock {
	return &CachedClock{tc: timecache.NewWithResolution(resolution)}
}

// Now returns the cached time.
func (c *CachedClock) Now() time.Time {
	return c.tc.CachedTime()
}

// Stop stops the background refresh.
func (c *CachedClock) Stop() {
	c.tc.Stop()
}
