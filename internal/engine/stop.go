package engine

import "time"

// StopFunc is polled once per cycle. Returning true ends the run with
// model.StatusStoppedByCallback unless the run finished in the same cycle.
type StopFunc func() bool

// MaxDuration returns a StopFunc that fires once d has elapsed since the call.
// A non-positive d never fires.
func MaxDuration(d time.Duration) StopFunc {
	if d <= 0 {
		return func() bool { return false }
	}
	deadline := time.Now().Add(d)
	return func() bool {
		return !time.Now().Before(deadline)
	}
}

// throttle spaces out progress reports: the first is due after 0.1s, each
// following one after 1.25 times the elapsed time plus two seconds.
type throttle struct {
	next float64
}

func newThrottle() throttle {
	return throttle{next: 0.1}
}

// due reports whether a report is due at elapsed seconds and, if so, moves the
// threshold forward.
func (t *throttle) due(elapsed float64) bool {
	if elapsed <= t.next {
		return false
	}
	t.next = 1.25*elapsed + 2.0
	return true
}
