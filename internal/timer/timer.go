// Package timer accumulates elapsed wall-clock time across start/stop intervals.
package timer

import (
	"fmt"
	"math"
	"time"
)

// Timer accumulates elapsed time. The zero value is a stopped timer at zero.
type Timer struct {
	total   time.Duration
	started time.Time
	running bool

	// now is replaceable in tests.
	now func() time.Time
}

// New returns a stopped timer.
func New() *Timer {
	return &Timer{now: time.Now}
}

func (t *Timer) clock() time.Time {
	if t.now == nil {
		return time.Now()
	}
	return t.now()
}

// Start begins a new interval. Starting a running timer is a no-op.
func (t *Timer) Start() {
	if t.running {
		return
	}
	t.started = t.clock()
	t.running = true
}

// Stop closes the current interval and adds it to the total.
func (t *Timer) Stop() {
	if !t.running {
		return
	}
	t.total += t.clock().Sub(t.started)
	t.running = false
}

// Reset stops the timer and clears the accumulated time.
func (t *Timer) Reset() {
	t.total = 0
	t.running = false
}

// Elapsed returns the accumulated time, including the running interval.
func (t *Timer) Elapsed() time.Duration {
	if t.running {
		return t.total + t.clock().Sub(t.started)
	}
	return t.total
}

// Seconds returns Elapsed in seconds.
func (t *Timer) Seconds() float64 {
	return t.Elapsed().Seconds()
}

// HHMMSS formats a duration given in seconds as hours:minutes:seconds.
func HHMMSS(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	s := int64(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s/60)%60, s%60)
}
