package connector

import (
	"sync"
	"time"
)

// DefaultTimeout is the cache timeout used when a session has no usable config
const DefaultTimeout = 10 * time.Second

// clock is the time source of new Timeouts
var clock = time.Now

// Timeout bounds how long a session's cached connection is reused.
// Before every wrapped call it checks whether more than the timeout passed
// since its last reset; if so it invalidates the session's cached connection
// and starts counting again. The first reset happens when the Timeout is created.
type Timeout struct {
	session *Session
	timeout time.Duration
	now     func() time.Time

	mu        sync.Mutex
	lastReset time.Time
}

// NewTimeout creates a Timeout for s with the given duration
func NewTimeout(s *Session, d time.Duration) *Timeout {
	t := &Timeout{
		session: s,
		timeout: d,
		now:     clock,
	}
	t.lastReset = t.now()
	return t
}

// Duration returns the configured timeout
func (t *Timeout) Duration() time.Duration {
	return t.timeout
}

// Check invalidates the cached connection if the timeout elapsed and reports whether it did
func (t *Timeout) Check() bool {
	t.mu.Lock()
	now := t.now()
	if !now.After(t.lastReset.Add(t.timeout)) {
		t.mu.Unlock()
		return false
	}
	t.lastReset = now
	t.mu.Unlock()

	t.session.Invalidate()
	timeoutResets.Inc()
	Logger.Debugf("Cache timeout of %s elapsed, cached connection dropped", t.timeout)
	return true
}

// Do runs Check and then fn
func (t *Timeout) Do(fn func() error) error {
	t.Check()
	return fn()
}

// Wrap returns fn guarded by t: every call runs Check first
func Wrap[T any](t *Timeout, fn func() (T, error)) func() (T, error) {
	return func() (T, error) {
		t.Check()
		return fn()
	}
}

// CachedConnection wraps fn with a Timeout of s.CacheTimeout()
func CachedConnection[T any](s *Session, fn func() (T, error)) func() (T, error) {
	return Wrap(NewTimeout(s, s.CacheTimeout()), fn)
}

// CachedConnectionTimeout returns a decorator that wraps functions with a timeout of d on s.
// Every wrapped function gets its own Timeout, started when it is wrapped.
func CachedConnectionTimeout[T any](s *Session, d time.Duration) func(fn func() (T, error)) func() (T, error) {
	return func(fn func() (T, error)) func() (T, error) {
		return Wrap(NewTimeout(s, d), fn)
	}
}
