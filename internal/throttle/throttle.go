// Package throttle implements the per-command cooldown gate.
//
// A command key is admitted when at least window seconds have passed since
// its last admitted call. Denied calls never touch the record.
package throttle

import (
	"sync"
	"time"
)

// Decision is the result of a single Allow call.
type Decision struct {
	Admitted         bool
	SecondsRemaining int64
}

// Throttle keeps the last admitted invocation time per command key, in
// epoch seconds. Records live for the lifetime of the instance.
type Throttle struct {
	mu    sync.Mutex
	last  map[string]int64
	clock func() time.Time
}

type Option func(*Throttle)

// WithClock replaces time.Now, mostly for tests.
func WithClock(clock func() time.Time) Option {
	return func(t *Throttle) {
		t.clock = clock
	}
}

func New(opts ...Option) *Throttle {
	t := &Throttle{
		last:  make(map[string]int64),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Allow checks and, on admission, stamps the key in one critical section so
// two concurrent callers can never both be admitted from the same reading.
func (t *Throttle) Allow(key string, windowSeconds int64) Decision {
	now := t.clock().Unix()

	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := now - t.last[key]
	if remaining := windowSeconds - elapsed; remaining > 0 {
		return Decision{SecondsRemaining: remaining}
	}

	t.last[key] = now
	return Decision{Admitted: true}
}

// Last returns the recorded timestamp for key and whether one exists.
func (t *Throttle) Last(key string) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ts, ok := t.last[key]
	return ts, ok
}
