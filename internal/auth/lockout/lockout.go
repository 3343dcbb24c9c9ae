// Package lockout throttles password guessing per email address.
package lockout

import (
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	DefaultMaxAttempts = 5
	DefaultWindow      = 15 * time.Minute
)

// Record is the failure history for one identifier.
type Record struct {
	Identifier   string
	FailureCount int
	WindowStart  time.Time
	LockedUntil  *time.Time
}

// IsLocked reports whether the record is locked at now.
func (r *Record) IsLocked(now time.Time) bool {
	return r.LockedUntil != nil && now.Before(*r.LockedUntil)
}

// RetryAfter is the time left until the lock lifts, or zero.
func (r *Record) RetryAfter(now time.Time) time.Duration {
	if !r.IsLocked(now) {
		return 0
	}
	return r.LockedUntil.Sub(now)
}

// Tracker counts failed logins. Reaching maxAttempts failures within window
// locks the identifier for window. Records expire from the cache on their own.
type Tracker struct {
	mu          sync.Mutex
	cache       *gocache.Cache
	maxAttempts int
	window      time.Duration
}

type Option func(*Tracker)

func WithMaxAttempts(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxAttempts = n
		}
	}
}

func WithWindow(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.window = d
		}
	}
}

func New(opts ...Option) *Tracker {
	t := &Tracker{
		maxAttempts: DefaultMaxAttempts,
		window:      DefaultWindow,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.cache = gocache.New(2*t.window, t.window)
	return t
}

// Check returns how long the identifier must wait, and whether it is locked.
func (t *Tracker) Check(identifier string, now time.Time) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.get(identifier)
	if !ok || !rec.IsLocked(now) {
		return 0, false
	}
	return rec.RetryAfter(now), true
}

// RecordFailure counts one failure and returns the updated record. The
// failure that reaches the limit sets the lock.
func (t *Tracker) RecordFailure(identifier string, now time.Time) Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.get(identifier)
	expired := ok && !rec.IsLocked(now) && now.Sub(rec.WindowStart) >= t.window
	if !ok || expired {
		rec = Record{Identifier: identifier, WindowStart: now}
	}
	rec.FailureCount++
	if rec.FailureCount >= t.maxAttempts && rec.LockedUntil == nil {
		until := now.Add(t.window)
		rec.LockedUntil = &until
	}
	t.cache.Set(identifier, rec, gocache.DefaultExpiration)
	return rec
}

// Clear forgets the identifier's failures after a successful login.
func (t *Tracker) Clear(identifier string) {
	t.cache.Delete(identifier)
}

func (t *Tracker) get(identifier string) (Record, bool) {
	v, ok := t.cache.Get(identifier)
	if !ok {
		return Record{}, false
	}
	return v.(Record), true
}

// LockedError reports that an identifier is locked out.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("locked out, retry after %s", e.RetryAfter)
}
