// Package dictation implements the voice dictation engine: source
// arbitration between the local microphone and paired remote devices, the
// per-session state machine that turns transcript chunks into dispatch
// intents, and the dispatcher that executes those intents against the editor.
package dictation

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// SourceLocal identifies the local microphone source. Remote sources use
// their pairing session token as the source ID.
const SourceLocal = "local"

// defaultIdleTimeout bounds how long a silent source may hold the
// arbitration lock before it is auto-released. Covers remote devices that
// disconnect uncleanly without releasing.
const defaultIdleTimeout = 45 * time.Second

var (
	// ErrSourceBusy is returned when another source already holds the
	// arbitration lock.
	ErrSourceBusy = errors.New("dictation: another source is already dictating")

	// ErrAlreadyActive is returned by [Session.Start] when the session is not
	// idle.
	ErrAlreadyActive = errors.New("dictation: session already active")
)

// ArbiterOption configures an [Arbiter].
type ArbiterOption func(*Arbiter)

// WithIdleTimeout sets how long a holder may stay silent before the lock is
// auto-released. Zero disables the timeout.
func WithIdleTimeout(d time.Duration) ArbiterOption {
	return func(a *Arbiter) { a.idleTimeout = d }
}

// WithExpireFunc sets a callback invoked (on a timer goroutine) after an
// idle timeout auto-releases the lock. Receives the source that lost it.
func WithExpireFunc(fn func(sourceID string)) ArbiterOption {
	return func(a *Arbiter) { a.onExpire = fn }
}

// Arbiter enforces mutual exclusion between dictation sources. At most one
// source holds the lock; a second source is denied rather than preempting
// the holder, so the losing side surfaces an "already dictating elsewhere"
// condition instead of silently stealing the microphone.
//
// All methods are safe for concurrent use.
type Arbiter struct {
	idleTimeout time.Duration
	onExpire    func(sourceID string)

	mu     sync.Mutex
	holder string
	timer  *time.Timer
}

// NewArbiter creates an Arbiter with a 45s idle timeout unless overridden.
func NewArbiter(opts ...ArbiterOption) *Arbiter {
	a := &Arbiter{idleTimeout: defaultIdleTimeout}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire grants the lock to sourceID if it is free or already held by the
// same source. Returns [ErrSourceBusy] when a different source holds it.
func (a *Arbiter) Acquire(sourceID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.holder {
	case "", sourceID:
		a.holder = sourceID
		a.armTimerLocked()
		return nil
	default:
		slog.Debug("arbiter: acquisition denied",
			"requested_by", sourceID,
			"held_by", a.holder,
		)
		return ErrSourceBusy
	}
}

// Release frees the lock if sourceID holds it. Releasing a lock held by a
// different source, or not held at all, is a no-op.
func (a *Arbiter) Release(sourceID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.holder != sourceID {
		return
	}
	a.holder = ""
	a.stopTimerLocked()
}

// Current returns the source holding the lock, or "" when it is free.
func (a *Arbiter) Current() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.holder
}

// Touch renews the idle timeout for the holding source. Calls from a source
// that does not hold the lock are ignored.
func (a *Arbiter) Touch(sourceID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.holder != sourceID {
		return
	}
	a.armTimerLocked()
}

func (a *Arbiter) armTimerLocked() {
	a.stopTimerLocked()
	if a.idleTimeout <= 0 {
		return
	}
	holder := a.holder
	a.timer = time.AfterFunc(a.idleTimeout, func() { a.expire(holder) })
}

func (a *Arbiter) stopTimerLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func (a *Arbiter) expire(sourceID string) {
	a.mu.Lock()
	if a.holder != sourceID {
		a.mu.Unlock()
		return
	}
	a.holder = ""
	a.timer = nil
	a.mu.Unlock()

	slog.Warn("arbiter: lock auto-released after idle timeout",
		"source", sourceID,
		"timeout", a.idleTimeout,
	)
	if a.onExpire != nil {
		a.onExpire(sourceID)
	}
}
