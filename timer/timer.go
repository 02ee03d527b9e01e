// Package timer provides a pausable, cancelable countdown used to drive every timed phase of playback and quiz rounds.
package timer

import (
	"context"
	"sync"
	"time"
)

// Timer counts a duration down. It is inert bookkeeping: callers react to
// Done/Wait themselves. A Timer is safe for concurrent use.
type Timer struct {
	mu        sync.Mutex
	duration  time.Duration
	remaining time.Duration
	startedAt time.Time
	running   bool
	finished  bool
	cancelled bool
	gen       uint64
	alarm     *time.Timer
	done      chan struct{}
}

// New creates a timer of duration d, started right away when autoStart is set.
func New(d time.Duration, autoStart bool) *Timer {
	if d < 0 {
		d = 0
	}
	t := &Timer{
		duration:  d,
		remaining: d,
		done:      make(chan struct{}),
	}
	if autoStart {
		t.Start()
	}
	return t
}

// Duration returns the nominal duration the timer was created with.
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// Start begins a fresh timer or resumes a paused one.
// It has no effect on a running or finished timer.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finished || t.running {
		return
	}

	if t.remaining <= 0 {
		t.finishLocked(false)
		return
	}

	t.gen++
	gen := t.gen
	t.running = true
	t.startedAt = time.Now()
	t.alarm = time.AfterFunc(t.remaining, func() { t.expire(gen) })
}

// Pause freezes the remaining time.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running || t.finished {
		return
	}

	t.alarm.Stop()
	t.remaining = t.leftLocked()
	t.running = false
}

// Paused reports whether the timer was started and is currently frozen.
func (t *Timer) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.running && !t.finished && t.remaining < t.duration
}

// Cancel marks the timer as done without it having elapsed.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finished {
		return
	}
	if t.alarm != nil {
		t.alarm.Stop()
	}
	t.finishLocked(true)
}

// Cancelled reports whether the timer was ended by Cancel.
func (t *Timer) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Finished reports whether the timer is done, either elapsed or cancelled.
func (t *Timer) Finished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finished
}

// TimeLeft returns the remaining time, never negative.
func (t *Timer) TimeLeft() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finished {
		return 0
	}
	return t.leftLocked()
}

// Done returns a channel closed once the timer elapses or is cancelled.
func (t *Timer) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the timer is done or ctx ends.
func (t *Timer) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Timer) expire(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// a pause or cancel raced with the alarm
	if gen != t.gen || !t.running || t.finished {
		return
	}
	t.finishLocked(false)
}

func (t *Timer) leftLocked() time.Duration {
	left := t.remaining
	if t.running {
		left -= time.Since(t.startedAt)
	}
	if left < 0 {
		return 0
	}
	return left
}

func (t *Timer) finishLocked(cancelled bool) {
	t.remaining = 0
	t.running = false
	t.finished = true
	t.cancelled = cancelled
	close(t.done)
}
