package engine

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/seantiz/montecarlo/internal/reduce"
)

// CollectResults reduces every measure and the move statistics over comm and
// reports per-rank timings. It is a collective call: every rank of comm must
// reach it. The reduced number of measures is only reported, NMeasures keeps
// the local count.
func (e *Engine[S]) CollectResults(ctx context.Context, comm reduce.Communicator) error {
	ctx, span := tracer.Start(ctx, "engine.collect_results")
	defer span.End()
	rank := comm.Rank()
	span.SetAttributes(attribute.Int("rank", rank), attribute.Int("size", comm.Size()))

	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	e.report.Printf(3, "[Rank %d] Collect results: Waiting for all ranks to finish accumulating...", rank)
	if err := e.meas.CollectResults(ctx, comm); err != nil {
		return fail(err)
	}
	if err := e.moves.CollectStatistics(ctx, comm); err != nil {
		return fail(err)
	}
	total, err := reduce.SumUint64(ctx, comm, e.nmeasures)
	if err != nil {
		return fail(fmt.Errorf("reduce nmeasures: %w", err))
	}
	e.refreshRates()
	e.publishProgress(0, 0)

	e.report.Printf(3, "[Rank %d] Timings for all measures:\n%s", rank, formatTable(e.meas.Timings(), "%.4f s"))
	e.report.Printf(3, "[Rank %d] Acceptance rate for all moves:\n%s", rank, formatTable(e.moves.AcceptanceRates(), "%.6f"))
	e.report.Printf(3, "[Rank %d] Warmup lasted: %.3f seconds [%s]", rank, e.warmupTime.Seconds(), e.WarmupTimeHHMMSS())
	e.report.Printf(3, "[Rank %d] Simulation lasted: %.3f seconds [%s]", rank, e.accumulationTime.Seconds(), e.AccumulationTimeHHMMSS())
	e.report.Printf(3, "[Rank %d] Number of measures: %d", rank, e.nmeasures)
	if rank == 0 {
		e.report.Printf(2, "Total number of measures: %d", total)
	}

	e.logger.Info("results collected", "rank", rank, "size", comm.Size(), "nmeasures_total", total)
	return nil
}

// formatTable renders name/value pairs one per line, sorted by name.
func formatTable(m map[string]float64, valueFmt string) string {
	var b strings.Builder
	for _, name := range slices.Sorted(maps.Keys(m)) {
		fmt.Fprintf(&b, "  %s : "+valueFmt+"\n", name, m[name])
	}
	return strings.TrimRight(b.String(), "\n")
}
