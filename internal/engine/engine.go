package engine

import (
	"fmt"
	"log/slog"
	"maps"
	"sync/atomic"
	"time"

	"github.com/seantiz/montecarlo/internal/interrupt"
	"github.com/seantiz/montecarlo/internal/measure"
	"github.com/seantiz/montecarlo/internal/model"
	"github.com/seantiz/montecarlo/internal/move"
	"github.com/seantiz/montecarlo/internal/report"
	"github.com/seantiz/montecarlo/internal/rng"
	"github.com/seantiz/montecarlo/internal/timer"
)

// Engine runs a Metropolis Markov chain over user-supplied moves and
// measures. S is the sign type, float64 or complex128.
type Engine[S model.Sign] struct {
	id     string
	src    rng.Source
	moves  *move.Registry[S]
	meas   *measure.Registry[S]
	aux    []func() error
	after  func() error
	latch  *interrupt.Latch
	report *report.Stream
	broker *ReportBroker
	logger *slog.Logger

	converged func() bool
	debug     bool

	sign             S
	configID         uint64
	currentCycle     uint64
	nmeasures        uint64
	percent          uint64
	warmupTime       time.Duration
	accumulationTime time.Duration
	phase            model.Phase
	running          bool
	started          bool

	rates    map[string]float64
	progress atomic.Pointer[Progress]
}

// New creates an engine drawing every random number from src and starting
// from signInit.
func New[S model.Sign](src rng.Source, signInit S, opts ...Option) *Engine[S] {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	if s.latch == nil {
		s.latch = interrupt.New()
	}

	e := &Engine[S]{
		id:        model.NewID(),
		src:       src,
		moves:     move.NewRegistry[S](src),
		meas:      measure.NewRegistry[S](),
		latch:     s.latch,
		report:    report.New(s.reportW, s.verbosity),
		broker:    NewReportBroker(),
		converged: s.converged,
		debug:     s.debug,
		sign:      signInit,
		phase:     model.PhaseIdle,
		rates:     map[string]float64{},
	}
	e.logger = s.logger.With("component", "engine", "run_id", e.id)
	e.report.SetPublisher(func(line string) {
		e.broker.Publish(e.id, line)
	})
	e.publishProgress(0, 0)
	return e
}

func (e *Engine[S]) checkOpen() error {
	if e.started {
		return model.ErrRegistrationClosed
	}
	return nil
}

// AddMove registers a move drawn with probability proportional to weight.
func (e *Engine[S]) AddMove(m move.Move[S], name string, weight float64) error {
	if err := e.checkOpen(); err != nil {
		return fmt.Errorf("add move %q: %w", name, err)
	}
	return e.moves.Add(m, name, weight)
}

// AddMeasure registers a measure accumulated after every measured cycle.
func (e *Engine[S]) AddMeasure(m measure.Measure[S], name string, enableTimer bool) (measure.Handle, error) {
	if err := e.checkOpen(); err != nil {
		return measure.Handle{}, fmt.Errorf("add measure %q: %w", name, err)
	}
	return e.meas.Insert(m, name, enableTimer)
}

// AddMeasureAux registers a hook run before the measures of every measured
// cycle, in registration order. Hooks typically compute quantities shared by
// several measures.
func (e *Engine[S]) AddMeasureAux(f func() error) error {
	if err := e.checkOpen(); err != nil {
		return fmt.Errorf("add measure aux: %w", err)
	}
	e.aux = append(e.aux, f)
	return nil
}

// RemoveMeasure unregisters a measure. It is allowed between runs.
func (e *Engine[S]) RemoveMeasure(h measure.Handle) error {
	if e.running {
		return fmt.Errorf("remove measure: %w", model.ErrRunInProgress)
	}
	return e.meas.Remove(h)
}

// SetAfterCycleDuty installs a callback run at the end of every cycle, before
// accumulation.
func (e *Engine[S]) SetAfterCycleDuty(f func() error) error {
	if err := e.checkOpen(); err != nil {
		return fmt.Errorf("set after cycle duty: %w", err)
	}
	e.after = f
	return nil
}

// RunID identifies this engine in logs, report streams and checkpoints.
func (e *Engine[S]) RunID() string { return e.id }

// Broker returns the broker carrying this engine's report lines.
func (e *Engine[S]) Broker() *ReportBroker { return e.broker }

// Close ends the report stream. Subscribers see end of stream.
func (e *Engine[S]) Close() {
	e.broker.Close(e.id)
}

// RNG returns the random source shared with the move registry.
func (e *Engine[S]) RNG() rng.Source { return e.src }

// Sign returns the current running sign.
func (e *Engine[S]) Sign() S { return e.sign }

// ConfigID counts every Metropolis step ever performed by this engine.
func (e *Engine[S]) ConfigID() uint64 { return e.configID }

// CurrentCycleNumber counts cycles completed across all runs.
func (e *Engine[S]) CurrentCycleNumber() uint64 { return e.currentCycle }

// NMeasures counts accumulations in the latest measured run on this rank.
func (e *Engine[S]) NMeasures() uint64 { return e.nmeasures }

// Percent is the completion percentage of the latest run.
func (e *Engine[S]) Percent() uint64 { return e.percent }

// Phase returns the lifecycle phase.
func (e *Engine[S]) Phase() model.Phase { return e.phase }

// WarmupTime is the duration of the latest warmup run.
func (e *Engine[S]) WarmupTime() time.Duration { return e.warmupTime }

// AccumulationTime is the duration of the latest measured run.
func (e *Engine[S]) AccumulationTime() time.Duration { return e.accumulationTime }

// TotalTime is WarmupTime plus AccumulationTime.
func (e *Engine[S]) TotalTime() time.Duration { return e.warmupTime + e.accumulationTime }

// WarmupTimeHHMMSS formats WarmupTime.
func (e *Engine[S]) WarmupTimeHHMMSS() string { return timer.HHMMSS(e.warmupTime.Seconds()) }

// AccumulationTimeHHMMSS formats AccumulationTime.
func (e *Engine[S]) AccumulationTimeHHMMSS() string {
	return timer.HHMMSS(e.accumulationTime.Seconds())
}

// TotalTimeHHMMSS formats TotalTime.
func (e *Engine[S]) TotalTimeHHMMSS() string { return timer.HHMMSS(e.TotalTime().Seconds()) }

// AcceptanceRates returns per-move acceptance rates, global after
// CollectResults.
func (e *Engine[S]) AcceptanceRates() map[string]float64 { return e.moves.AcceptanceRates() }

// MeasureTimings returns the accumulated seconds of every timed measure.
func (e *Engine[S]) MeasureTimings() map[string]float64 { return e.meas.Timings() }

// MoveProbabilities returns the normalized move weights.
func (e *Engine[S]) MoveProbabilities() map[string]float64 { return e.moves.Probabilities() }

func (e *Engine[S]) setPhase(p model.Phase) error {
	if !model.ValidTransition(e.phase, p) {
		return fmt.Errorf("%s -> %s: %w", e.phase, p, model.ErrInvalidTransition)
	}
	e.phase = p
	return nil
}

// refreshRates snapshots the acceptance rates for Progress readers.
func (e *Engine[S]) refreshRates() {
	e.rates = maps.Clone(e.moves.AcceptanceRates())
}
