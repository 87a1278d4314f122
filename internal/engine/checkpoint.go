package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/seantiz/montecarlo/internal/model"
)

// CheckpointStore persists checkpoints. store.SQLiteStore implements it.
type CheckpointStore interface {
	SaveCheckpoint(ctx context.Context, cp *model.Checkpoint) error
	GetCheckpoint(ctx context.Context, group, name string) (*model.Checkpoint, error)
}

// Snapshot captures the persistent state of the engine: move statistics,
// measure accumulators, completed cycles, measures taken and the sign.
func (e *Engine[S]) Snapshot() (*model.Checkpoint, error) {
	moves, err := e.moves.Stats()
	if err != nil {
		return nil, fmt.Errorf("snapshot moves: %w", err)
	}
	measures, err := e.meas.Stats()
	if err != nil {
		return nil, fmt.Errorf("snapshot measures: %w", err)
	}
	cp := &model.Checkpoint{
		RunID:              e.id,
		CurrentCycleNumber: e.currentCycle,
		NMeasures:          e.nmeasures,
		Moves:              moves,
		Measures:           measures,
		CreatedAt:          time.Now().UTC(),
	}
	cp.SetSign(model.ToComplex(e.sign))
	return cp, nil
}

// Restore loads a checkpoint into the engine. The registered move and
// measure names must match the checkpoint exactly. If the names differ or a
// move or measure rejects its saved state, the engine keeps its previous
// counters and serialisable state.
func (e *Engine[S]) Restore(cp *model.Checkpoint) error {
	if e.running {
		return fmt.Errorf("restore: %w", model.ErrRunInProgress)
	}
	if err := sameNames("move", e.moves.Names(), cp.Moves, func(s model.MoveStats) string { return s.Name }); err != nil {
		return err
	}
	if err := sameNames("measure", e.meas.Names(), cp.Measures, func(s model.MeasureStats) string { return s.Name }); err != nil {
		return err
	}

	prev, err := e.Snapshot()
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	if err := e.apply(cp); err != nil {
		if rbErr := e.apply(prev); rbErr != nil {
			return errors.Join(err, fmt.Errorf("roll back: %w", rbErr))
		}
		return err
	}
	return nil
}

// apply overwrites the engine state with cp. Names must already match.
func (e *Engine[S]) apply(cp *model.Checkpoint) error {
	if err := e.moves.Restore(cp.Moves); err != nil {
		return fmt.Errorf("restore moves: %w", err)
	}
	if err := e.meas.Restore(cp.Measures); err != nil {
		return fmt.Errorf("restore measures: %w", err)
	}
	e.currentCycle = cp.CurrentCycleNumber
	e.nmeasures = cp.NMeasures
	e.sign = model.FromComplex[S](cp.Sign())
	e.refreshRates()
	e.publishProgress(0, 0)
	return nil
}

func sameNames[T any](kind string, registered []string, stats []T, name func(T) string) error {
	got := make([]string, 0, len(stats))
	for _, s := range stats {
		got = append(got, name(s))
	}
	want := slices.Clone(registered)
	slices.Sort(got)
	slices.Sort(want)
	if !slices.Equal(got, want) {
		return fmt.Errorf("%s names %v, registered %v: %w", kind, got, want, model.ErrCheckpointMismatch)
	}
	return nil
}

// Write snapshots e and saves it under group/name.
func Write[S model.Sign](ctx context.Context, st CheckpointStore, group, name string, e *Engine[S]) error {
	cp, err := e.Snapshot()
	if err != nil {
		return err
	}
	cp.Group = group
	cp.Name = name
	if err := st.SaveCheckpoint(ctx, cp); err != nil {
		return fmt.Errorf("save checkpoint %s/%s: %w", group, name, err)
	}
	e.logger.Info("checkpoint written", "group", group, "name", name,
		"current_cycle_number", cp.CurrentCycleNumber)
	return nil
}

// Read loads the checkpoint saved under group/name into e.
func Read[S model.Sign](ctx context.Context, st CheckpointStore, group, name string, e *Engine[S]) error {
	cp, err := st.GetCheckpoint(ctx, group, name)
	if err != nil {
		return fmt.Errorf("get checkpoint %s/%s: %w", group, name, err)
	}
	if err := e.Restore(cp); err != nil {
		return err
	}
	e.logger.Info("checkpoint restored", "group", group, "name", name,
		"current_cycle_number", cp.CurrentCycleNumber)
	return nil
}
