package model

import "time"

// MoveStats holds the persisted acceptance statistics of one move.
type MoveStats struct {
	Name     string  `json:"name"`
	Weight   float64 `json:"weight"`
	Accepted uint64  `json:"accepted"`
	Rejected uint64  `json:"rejected"`

	// Collected is set once counters have been reduced across processes;
	// GlobalAccepted and GlobalRejected then hold the reduced totals.
	Collected      bool   `json:"collected"`
	GlobalAccepted uint64 `json:"global_accepted"`
	GlobalRejected uint64 `json:"global_rejected"`

	// State is the move's own serialized state, if it provides one.
	State []byte `json:"state,omitempty"`
}

// MeasureStats holds the persisted accumulator of one measure.
type MeasureStats struct {
	Name           string  `json:"name"`
	Count          uint64  `json:"count"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	State          []byte  `json:"state,omitempty"`
}

// Checkpoint is the persisted state of an engine: move statistics, measure
// accumulators, completed cycles, measures taken and the running sign.
type Checkpoint struct {
	Group              string         `json:"group"`
	Name               string         `json:"name"`
	RunID              string         `json:"run_id"`
	CurrentCycleNumber uint64         `json:"number_cycle_done"`
	NMeasures          uint64         `json:"number_measure_done"`
	SignReal           float64        `json:"sign_real"`
	SignImag           float64        `json:"sign_imag"`
	Moves              []MoveStats    `json:"moves"`
	Measures           []MeasureStats `json:"measures"`
	CreatedAt          time.Time      `json:"created_at"`
}

// Sign returns the checkpointed sign as a complex number.
func (c *Checkpoint) Sign() complex128 {
	return complex(c.SignReal, c.SignImag)
}

// SetSign stores s in the checkpoint.
func (c *Checkpoint) SetSign(s complex128) {
	c.SignReal = real(s)
	c.SignImag = imag(s)
}
