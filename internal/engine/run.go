package engine

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/seantiz/montecarlo/internal/model"
	"github.com/seantiz/montecarlo/internal/report"
	"github.com/seantiz/montecarlo/internal/timer"
)

var tracer = otel.Tracer("github.com/seantiz/montecarlo/internal/engine")

// Run performs up to nCycles cycles of cycleLength Metropolis steps. When
// doMeasure is set every completed cycle is followed by an accumulation of
// all measures.
//
// The run ends when the last cycle completes or the convergence predicate
// holds (StatusFinished), when stop returns true (StatusStoppedByCallback), or
// when an interrupt is received or ctx is cancelled (StatusStoppedBySignal).
// An interrupted cycle skips its after-cycle duty and accumulation.
//
// Errors from moves, measures or callbacks abort the run and leave the
// engine in model.PhaseFailed.
func (e *Engine[S]) Run(ctx context.Context, nCycles, cycleLength uint64, stop StopFunc, doMeasure bool) (model.Status, error) {
	if nCycles == 0 {
		return model.StatusFinished, nil
	}
	if e.running {
		return model.StatusFinished, model.ErrRunInProgress
	}

	phase := model.PhaseWarmup
	if doMeasure {
		phase = model.PhaseAccumulating
	}
	if err := e.setPhase(phase); err != nil {
		return model.StatusFinished, fmt.Errorf("run: %w", err)
	}
	e.running = true
	e.started = true
	defer func() { e.running = false }()

	ctx, span := tracer.Start(ctx, "engine.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run_id", e.id),
		attribute.String("phase", string(phase)),
		attribute.Int64("n_cycles", int64(nCycles)),
		attribute.Int64("cycle_length", int64(cycleLength)),
	)

	e.latch.Start()
	defer e.latch.Stop()
	if ctx.Err() != nil {
		e.latch.Trigger()
	}
	stopWatching := context.AfterFunc(ctx, e.latch.Trigger)
	defer stopWatching()

	e.logger.Info("run started", "phase", phase, "n_cycles", nCycles, "cycle_length", cycleLength)

	tm := timer.New()
	tm.Start()
	cycles := cyclesTotal.WithLabelValues(string(phase))
	steps := stepsTotal.WithLabelValues(string(phase))

	e.percent = 0
	e.nmeasures = 0
	th := newThrottle()

	var nc uint64
	finished := false
	var runErr error
	for stopIt := false; !stopIt; nc++ {
		aborted, err := e.cycle(cycleLength, doMeasure)
		if err != nil {
			runErr = err
			break
		}
		if !aborted {
			cycles.Inc()
			steps.Add(float64(cycleLength))
		}

		if nCycles == 1 {
			e.percent = 100
		} else {
			e.percent = uint64(math.Floor(float64(nc) * 100 / float64(nCycles-1)))
		}

		if elapsed := tm.Seconds(); th.due(elapsed) {
			e.report.Printf(1, "%s %3d%% ETA %s cycle %d of %d",
				report.Timestamp(time.Now()), e.percent,
				report.EstimateTimeLeft(nCycles, nc+1, elapsed), nc, nCycles)
			e.refreshRates()
		}

		finished = nc+1 >= nCycles || e.converged()
		userStop := stop != nil && stop()
		stopIt = userStop || e.latch.Received() || finished
		e.publishProgress(nc+1, nCycles)
	}

	tm.Stop()
	e.currentCycle += nc
	if doMeasure {
		e.accumulationTime = tm.Elapsed()
	} else {
		e.warmupTime = tm.Elapsed()
	}
	e.refreshRates()

	if runErr != nil {
		e.phase = model.PhaseFailed
		e.publishProgress(nc, nCycles)
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		e.logger.Error("run failed", "phase", phase, "cycles", nc, "error", runErr)
		return model.StatusFinished, runErr
	}

	var status model.Status
	switch {
	case finished:
		status = model.StatusFinished
	case e.latch.Received():
		status = model.StatusStoppedBySignal
	default:
		status = model.StatusStoppedByCallback
	}
	if err := e.setPhase(model.TerminalPhase(status)); err != nil {
		return status, fmt.Errorf("run: %w", err)
	}
	e.publishProgress(nc, nCycles)

	runsTotal.WithLabelValues(string(phase), strconv.Itoa(int(status))).Inc()
	runDuration.WithLabelValues(string(phase)).Observe(tm.Seconds())
	span.SetAttributes(
		attribute.Int("status", int(status)),
		attribute.Int64("cycles", int64(nc)),
	)
	e.logger.Info("run ended", "phase", phase, "status", status, "cycles", nc,
		"config_id", e.configID, "seconds", tm.Seconds())

	return status, nil
}

// cycle performs one cycle. aborted is true when an interrupt arrived before
// the cycle completed; the after-cycle duty and accumulation are then skipped.
func (e *Engine[S]) cycle(length uint64, doMeasure bool) (aborted bool, err error) {
	for range length {
		if e.latch.Received() {
			return true, nil
		}
		if err := e.step(); err != nil {
			return false, err
		}
		e.configID++
	}

	if e.after != nil {
		if err := e.after(); err != nil {
			return false, fmt.Errorf("after cycle duty: %w", err)
		}
	}
	if !doMeasure {
		return false, nil
	}

	e.nmeasures++
	for i, f := range e.aux {
		if err := f(); err != nil {
			return false, fmt.Errorf("measure aux %d: %w", i, err)
		}
	}
	if err := e.meas.Accumulate(e.sign); err != nil {
		return false, err
	}
	return false, nil
}

// step attempts one move and applies the Metropolis decision.
func (e *Engine[S]) step() error {
	r, err := e.moves.Attempt()
	if err != nil {
		return err
	}
	if e.debug {
		name, _ := e.moves.Pending()
		e.logger.Debug("move attempted", "move", name, "ratio", r)
	}

	if e.src.Float64() < min(1.0, r) {
		corr, err := e.moves.Accept()
		if err != nil {
			return err
		}
		e.sign *= corr
		if e.debug {
			e.logger.Debug("move accepted", "sign", fmt.Sprint(e.sign))
		}
		return nil
	}

	if err := e.moves.Reject(); err != nil {
		return err
	}
	if e.debug {
		e.logger.Debug("move rejected")
	}
	return nil
}

// WarmupAndAccumulate runs nWarmup unmeasured cycles and, if warmup finished,
// nAccumulation measured cycles. The status of the last executed run is
// returned.
func (e *Engine[S]) WarmupAndAccumulate(ctx context.Context, nWarmup, nAccumulation, cycleLength uint64, stop StopFunc) (model.Status, error) {
	ctx, span := tracer.Start(ctx, "engine.warmup_and_accumulate")
	defer span.End()

	e.report.Printf(1, "\nWarming up ...")
	status, err := e.Run(ctx, nWarmup, cycleLength, stop, false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return status, fmt.Errorf("warmup: %w", err)
	}

	if status == model.StatusFinished {
		e.report.Printf(1, "\nAccumulating ...")
		status, err = e.Run(ctx, nAccumulation, cycleLength, stop, true)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return status, fmt.Errorf("accumulation: %w", err)
		}
	}

	switch status {
	case model.StatusStoppedByCallback:
		e.report.Printf(1, "Simulation stopped because of the stop callback")
	case model.StatusStoppedBySignal:
		e.report.Printf(1, "Simulation stopped because a signal was received")
	}
	span.SetAttributes(attribute.Int("status", int(status)))
	return status, nil
}
