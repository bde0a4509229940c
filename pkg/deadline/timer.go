// Package deadline implements the rearmable safety deadline of the watchdog.
//
// A Timer fires its expiry callback once, on the runtime timer goroutine, when
// it is not rearmed or disarmed within the armed duration. Rearming reuses a
// single runtime timer, so the monitoring loop can call Arm every cycle.
package deadline

import (
	"errors"
	"sync"
	"time"
)

// Timer errors.
var (
	ErrInvalidDuration = errors.New("deadline duration must be positive")
	ErrExpired         = errors.New("deadline already expired")
)

// Timer is a one-shot, rearmable deadline.
type Timer struct {
	mu sync.Mutex

	timer    *time.Timer
	deadline time.Time
	armed    bool
	expired  bool

	onExpire func()
	now      func() time.Time
}

// NewTimer creates a disarmed timer that calls onExpire when a deadline elapses.
func NewTimer(onExpire func()) *Timer {
	return &Timer{
		onExpire: onExpire,
		now:      time.Now,
	}
}

// Arm replaces any pending deadline with one d from now. A rearm that arrives
// when the pending deadline has already passed does not extend it: the timer
// expires, Arm runs the expiry callback on the calling goroutine and returns
// ErrExpired.
func (t *Timer) Arm(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidDuration
	}

	t.mu.Lock()

	if t.expired {
		t.mu.Unlock()
		return ErrExpired
	}

	now := t.now()
	if t.armed && !now.Before(t.deadline) {
		onExpire := t.expireLocked()
		t.mu.Unlock()
		if onExpire != nil {
			onExpire()
		}
		return ErrExpired
	}
	defer t.mu.Unlock()

	t.deadline = now.Add(d)
	t.armed = true

	if t.timer == nil {
		t.timer = time.AfterFunc(d, t.fire)
	} else {
		t.timer.Reset(d)
	}
	return nil
}

// Disarm cancels the pending deadline, if any.
func (t *Timer) Disarm() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.armed = false
	if t.timer != nil {
		t.timer.Stop()
	}
}

// Armed reports whether a deadline is pending.
func (t *Timer) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

// Expired reports whether the expiry callback has been triggered.
func (t *Timer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expired
}

// Remaining returns the time left before the pending deadline, or 0 when disarmed.
func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.armed {
		return 0
	}
	remaining := t.deadline.Sub(t.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// fire runs on the runtime timer goroutine. A firing that raced with Arm or
// Disarm finds the timer disarmed or the deadline moved and does nothing.
func (t *Timer) fire() {
	t.mu.Lock()
	if !t.armed || t.expired || t.now().Before(t.deadline) {
		t.mu.Unlock()
		return
	}
	onExpire := t.expireLocked()
	t.mu.Unlock()

	if onExpire != nil {
		onExpire()
	}
}

// expireLocked marks the timer expired and returns the callback to run once
// the lock is released. A pending runtime timer finds expired set and exits.
func (t *Timer) expireLocked() func() {
	t.armed = false
	t.expired = true
	if t.timer != nil {
		t.timer.Stop()
	}
	return t.onExpire
}
