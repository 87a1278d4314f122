package timer

import (
	"testing"
	"time"
)

// fakeClock returns a controllable time source.
func fakeClock(start time.Time) (func() time.Time, func(time.Duration)) {
	cur := start
	return func() time.Time { return cur }, func(d time.Duration) { cur = cur.Add(d) }
}

func TestTimerAccumulatesIntervals(t *testing.T) {
	now, advance := fakeClock(time.Unix(0, 0))
	tm := &Timer{now: now}

	tm.Start()
	advance(2 * time.Second)
	tm.Stop()
	advance(10 * time.Second) // not counted
	tm.Start()
	advance(500 * time.Millisecond)
	tm.Stop()

	if got := tm.Elapsed(); got != 2500*time.Millisecond {
		t.Errorf("Elapsed = %v, want 2.5s", got)
	}
}

func TestTimerIncludesRunningInterval(t *testing.T) {
	now, advance := fakeClock(time.Unix(0, 0))
	tm := &Timer{now: now}

	tm.Start()
	advance(3 * time.Second)
	if got := tm.Seconds(); got != 3 {
		t.Errorf("Seconds while running = %v, want 3", got)
	}

	tm.Start() // no-op
	advance(time.Second)
	tm.Stop()
	if got := tm.Seconds(); got != 4 {
		t.Errorf("Seconds = %v, want 4", got)
	}
}

func TestTimerReset(t *testing.T) {
	now, advance := fakeClock(time.Unix(0, 0))
	tm := &Timer{now: now}
	tm.Start()
	advance(time.Second)
	tm.Reset()
	if tm.Elapsed() != 0 {
		t.Errorf("Elapsed after Reset = %v, want 0", tm.Elapsed())
	}
}

func TestZeroValueTimer(t *testing.T) {
	var tm Timer
	tm.Start()
	tm.Stop()
	if tm.Elapsed() < 0 {
		t.Error("zero-value timer produced negative elapsed time")
	}
	if New().Elapsed() != 0 {
		t.Error("new timer should start at zero")
	}
}

func TestHHMMSS(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "00:00:00"},
		{59.9, "00:00:59"},
		{61, "00:01:01"},
		{3600, "01:00:00"},
		{90061, "25:01:01"},
		{-5, "00:00:00"},
	}
	for _, tt := range tests {
		if got := HHMMSS(tt.in); got != tt.want {
			t.Errorf("HHMMSS(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
