// Package report implements the verbosity-gated text stream used for
// user-facing progress and diagnostics. Verbosity 0 is silent.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/seantiz/montecarlo/internal/timer"
)

// Stream writes report lines whose level does not exceed the verbosity.
// It is safe for concurrent use.
type Stream struct {
	mu        sync.Mutex
	w         io.Writer
	verbosity int

	// publish, when set, receives every emitted line without its trailing newline.
	publish func(line string)
}

// New creates a stream writing to w at the given verbosity. A nil writer
// discards output.
func New(w io.Writer, verbosity int) *Stream {
	if w == nil {
		w = io.Discard
	}
	return &Stream{w: w, verbosity: verbosity}
}

// SetPublisher installs a callback receiving every emitted line.
func (s *Stream) SetPublisher(f func(line string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish = f
}

// Verbosity returns the configured verbosity.
func (s *Stream) Verbosity() int { return s.verbosity }

// Enabled reports whether a message at level would be written.
func (s *Stream) Enabled(level int) bool {
	return s.verbosity > 0 && level <= s.verbosity
}

// Printf formats and writes a message at level. A trailing newline is added
// when missing.
func (s *Stream) Printf(level int, format string, args ...any) {
	if !s.Enabled(level) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, msg)
	if s.publish != nil {
		for line := range strings.SplitSeq(strings.TrimRight(msg, "\n"), "\n") {
			s.publish(line)
		}
	}
}

// Timestamp formats t the way progress lines are stamped.
func Timestamp(t time.Time) string {
	return t.Format("15:04:05")
}

// EstimateTimeLeft extrapolates the remaining time of a run of nCycles cycles
// after done cycles took elapsed seconds.
func EstimateTimeLeft(nCycles, done uint64, elapsed float64) string {
	if done == 0 || done >= nCycles {
		return timer.HHMMSS(0)
	}
	left := elapsed * float64(nCycles-done) / float64(done)
	if math.IsInf(left, 0) || math.IsNaN(left) {
		return timer.HHMMSS(0)
	}
	return timer.HHMMSS(left)
}
