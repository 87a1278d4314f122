package move

import (
	"context"
	"encoding"
	"fmt"
	"math"
	"sort"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/seantiz/montecarlo/internal/model"
	"github.com/seantiz/montecarlo/internal/reduce"
	"github.com/seantiz/montecarlo/internal/rng"
)

// zeroRatio is the modulus below which a ratio has no meaningful phase.
const zeroRatio = 1e-14

// entry is one registered move and its statistics.
type entry[S model.Sign] struct {
	name   string
	weight float64
	move   Move[S]

	accepted uint64
	rejected uint64

	collected      bool
	globalAccepted uint64
	globalRejected uint64

	acceptedTotal prometheus.Counter
	rejectedTotal prometheus.Counter
}

func (e *entry[S]) rate() float64 {
	acc, rej := e.accepted, e.rejected
	if e.collected {
		acc, rej = e.globalAccepted, e.globalRejected
	}
	if acc+rej == 0 {
		return 0
	}
	return float64(acc) / float64(acc+rej)
}

// Registry holds the moves of one engine and dispatches among them by weight.
// It is not safe for concurrent use; the engine loop owns it.
type Registry[S model.Sign] struct {
	src     rng.Source
	entries []*entry[S]
	index   map[string]int

	// cumulative holds normalized cumulative weights; nil until the first
	// Attempt after a registration.
	cumulative []float64

	pending *entry[S]
	phase   S
}

// NewRegistry creates an empty registry drawing from src.
func NewRegistry[S model.Sign](src rng.Source) *Registry[S] {
	return &Registry[S]{
		src:   src,
		index: make(map[string]int),
	}
}

// Add registers m under name with the given proposition weight. Weights need
// not be normalized.
func (r *Registry[S]) Add(m Move[S], name string, weight float64) error {
	if _, ok := r.index[name]; ok {
		return fmt.Errorf("move %q: %w", name, model.ErrDuplicateName)
	}
	if !(weight > 0) || math.IsInf(weight, 0) {
		return fmt.Errorf("move %q weight %v: %w", name, weight, model.ErrInvalidWeight)
	}

	r.index[name] = len(r.entries)
	r.entries = append(r.entries, &entry[S]{
		name:          name,
		weight:        weight,
		move:          m,
		acceptedTotal: moveDecisionsTotal.WithLabelValues(name, outcomeAccepted),
		rejectedTotal: moveDecisionsTotal.WithLabelValues(name, outcomeRejected),
	})
	r.cumulative = nil
	return nil
}

// Len returns the number of registered moves.
func (r *Registry[S]) Len() int { return len(r.entries) }

// Names returns the move names in registration order.
func (r *Registry[S]) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.name
	}
	return names
}

func (r *Registry[S]) normalize() {
	if r.cumulative != nil {
		return
	}
	var total float64
	for _, e := range r.entries {
		total += e.weight
	}
	r.cumulative = make([]float64, len(r.entries))
	var acc float64
	for i, e := range r.entries {
		acc += e.weight / total
		r.cumulative[i] = acc
	}
}

// Probabilities returns the normalized proposition probability of every move.
func (r *Registry[S]) Probabilities() map[string]float64 {
	r.normalize()
	out := make(map[string]float64, len(r.entries))
	prev := 0.0
	for i, e := range r.entries {
		out[e.name] = r.cumulative[i] - prev
		prev = r.cumulative[i]
	}
	return out
}

// Pending returns the name of the move awaiting Accept or Reject.
func (r *Registry[S]) Pending() (string, bool) {
	if r.pending == nil {
		return "", false
	}
	return r.pending.name, true
}

// Attempt draws a move, runs its Attempt and returns the modulus of the
// proposed ratio. The phase of the ratio is kept for Accept.
func (r *Registry[S]) Attempt() (float64, error) {
	if r.pending != nil {
		return 0, fmt.Errorf("attempt while %q is pending: %w", r.pending.name, model.ErrProtocolViolation)
	}
	if len(r.entries) == 0 {
		return 0, model.ErrNoMoves
	}
	r.normalize()

	u := r.src.Float64()
	i := sort.SearchFloat64s(r.cumulative, u)
	if i >= len(r.entries) {
		i = len(r.entries) - 1
	}
	e := r.entries[i]

	ratio, err := e.move.Attempt()
	if err != nil {
		return 0, fmt.Errorf("move %q attempt: %w", e.name, err)
	}
	if model.IsNaN(ratio) {
		return 0, fmt.Errorf("move %q: %w", e.name, model.ErrNaNRatio)
	}

	r.pending = e
	r.phase = model.Unit(ratio, zeroRatio)
	abs := model.Abs(ratio)
	if abs < zeroRatio {
		abs = 0
	}
	return abs, nil
}

// Accept commits the pending move and returns its sign correction multiplied
// by the phase of the proposed ratio.
func (r *Registry[S]) Accept() (S, error) {
	e := r.pending
	if e == nil {
		var zero S
		return zero, fmt.Errorf("accept without pending move: %w", model.ErrProtocolViolation)
	}
	r.pending = nil

	corr, err := e.move.Accept()
	if err != nil {
		var zero S
		return zero, fmt.Errorf("move %q accept: %w", e.name, err)
	}
	e.accepted++
	e.acceptedTotal.Inc()
	return corr * r.phase, nil
}

// Reject discards the pending move.
func (r *Registry[S]) Reject() error {
	e := r.pending
	if e == nil {
		return fmt.Errorf("reject without pending move: %w", model.ErrProtocolViolation)
	}
	r.pending = nil

	if err := e.move.Reject(); err != nil {
		return fmt.Errorf("move %q reject: %w", e.name, err)
	}
	e.rejected++
	e.rejectedTotal.Inc()
	return nil
}

// AcceptanceRates maps every move name to accepted/(accepted+rejected).
// After CollectStatistics the rates are global.
func (r *Registry[S]) AcceptanceRates() map[string]float64 {
	out := make(map[string]float64, len(r.entries))
	for _, e := range r.entries {
		out[e.name] = e.rate()
	}
	return out
}

// CollectStatistics sums acceptance counters across all ranks of comm.
func (r *Registry[S]) CollectStatistics(ctx context.Context, comm reduce.Communicator) error {
	vals := make([]uint64, 0, 2*len(r.entries))
	for _, e := range r.entries {
		vals = append(vals, e.accepted, e.rejected)
	}
	sums, err := comm.AllReduceUint64s(ctx, vals)
	if err != nil {
		return fmt.Errorf("reduce move statistics: %w", err)
	}
	for i, e := range r.entries {
		e.globalAccepted = sums[2*i]
		e.globalRejected = sums[2*i+1]
		e.collected = true
	}
	return nil
}

// Stats snapshots the statistics of every move, including the serialized
// state of moves implementing encoding.BinaryMarshaler.
func (r *Registry[S]) Stats() ([]model.MoveStats, error) {
	out := make([]model.MoveStats, len(r.entries))
	for i, e := range r.entries {
		out[i] = model.MoveStats{
			Name:           e.name,
			Weight:         e.weight,
			Accepted:       e.accepted,
			Rejected:       e.rejected,
			Collected:      e.collected,
			GlobalAccepted: e.globalAccepted,
			GlobalRejected: e.globalRejected,
		}
		if m, ok := e.move.(encoding.BinaryMarshaler); ok {
			state, err := m.MarshalBinary()
			if err != nil {
				return nil, fmt.Errorf("marshal move %q: %w", e.name, err)
			}
			out[i].State = state
		}
	}
	return out, nil
}

// Restore loads statistics produced by Stats. The set of names must match the
// registered moves exactly.
func (r *Registry[S]) Restore(stats []model.MoveStats) error {
	if len(stats) != len(r.entries) {
		return fmt.Errorf("%d moves in checkpoint, %d registered: %w", len(stats), len(r.entries), model.ErrCheckpointMismatch)
	}
	for _, st := range stats {
		if _, ok := r.index[st.Name]; !ok {
			return fmt.Errorf("move %q not registered: %w", st.Name, model.ErrCheckpointMismatch)
		}
	}
	for _, st := range stats {
		e := r.entries[r.index[st.Name]]
		e.accepted = st.Accepted
		e.rejected = st.Rejected
		e.collected = st.Collected
		e.globalAccepted = st.GlobalAccepted
		e.globalRejected = st.GlobalRejected
		if len(st.State) == 0 {
			continue
		}
		if m, ok := e.move.(encoding.BinaryUnmarshaler); ok {
			if err := m.UnmarshalBinary(st.State); err != nil {
				return fmt.Errorf("unmarshal move %q: %w", st.Name, err)
			}
		}
	}
	return nil
}
