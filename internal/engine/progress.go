package engine

import (
	"time"

	"github.com/seantiz/montecarlo/internal/model"
)

// Progress is a point-in-time view of an engine, safe to read from any
// goroutine.
type Progress struct {
	RunID              string             `json:"run_id"`
	Phase              model.Phase        `json:"phase"`
	Percent            uint64             `json:"percent"`
	Cycle              uint64             `json:"cycle"`
	NCycles            uint64             `json:"n_cycles"`
	CurrentCycleNumber uint64             `json:"current_cycle_number"`
	ConfigID           uint64             `json:"config_id"`
	NMeasures          uint64             `json:"nmeasures"`
	WarmupSeconds      float64            `json:"warmup_seconds"`
	AccumulateSeconds  float64            `json:"accumulation_seconds"`
	AcceptanceRates    map[string]float64 `json:"acceptance_rates"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// Progress returns the latest snapshot published by the run loop.
func (e *Engine[S]) Progress() Progress {
	return *e.progress.Load()
}

// publishProgress stores a fresh snapshot. cycle and nCycles describe the
// position inside the current run.
func (e *Engine[S]) publishProgress(cycle, nCycles uint64) {
	e.progress.Store(&Progress{
		RunID:              e.id,
		Phase:              e.phase,
		Percent:            e.percent,
		Cycle:              cycle,
		NCycles:            nCycles,
		CurrentCycleNumber: e.currentCycle,
		ConfigID:           e.configID,
		NMeasures:          e.nmeasures,
		WarmupSeconds:      e.warmupTime.Seconds(),
		AccumulateSeconds:  e.accumulationTime.Seconds(),
		AcceptanceRates:    e.rates,
		UpdatedAt:          time.Now().UTC(),
	})
}
