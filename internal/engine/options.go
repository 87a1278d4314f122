package engine

import (
	"io"
	"log/slog"
	"os"

	"github.com/seantiz/montecarlo/internal/interrupt"
)

type settings struct {
	reportW   io.Writer
	verbosity int
	logger    *slog.Logger
	latch     *interrupt.Latch
	converged func() bool
	debug     bool
}

func defaultSettings() settings {
	return settings{
		reportW:   os.Stdout,
		verbosity: 1,
		logger:    slog.New(slog.DiscardHandler),
		converged: func() bool { return false },
	}
}

// Option configures an Engine.
type Option func(*settings)

// WithReport sends report lines to w at the given verbosity. Verbosity 0
// silences the report.
func WithReport(w io.Writer, verbosity int) Option {
	return func(s *settings) {
		s.reportW = w
		s.verbosity = verbosity
	}
}

// WithLogger sets the structured logger used for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLatch replaces the interrupt latch. Tests use interrupt.NewManual to
// avoid touching process signal handling.
func WithLatch(l *interrupt.Latch) Option {
	return func(s *settings) {
		if l != nil {
			s.latch = l
		}
	}
}

// WithConvergence installs a predicate checked after every cycle. A run
// finishes early once it returns true.
func WithConvergence(f func() bool) Option {
	return func(s *settings) {
		if f != nil {
			s.converged = f
		}
	}
}

// WithDebug logs every Metropolis decision at debug level.
func WithDebug(debug bool) Option {
	return func(s *settings) {
		s.debug = debug
	}
}
