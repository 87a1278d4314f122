package ising

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/seantiz/montecarlo/internal/reduce"
)

// moments accumulates sign-weighted first and second moments of a per-site
// observable.
type moments struct {
	Sum     float64
	SumSq   float64
	SumSign float64
	Count   uint64
}

func (m *moments) add(sign, x float64) {
	m.Sum += sign * x
	m.SumSq += sign * x * x
	m.SumSign += sign
	m.Count++
}

// mean is zero when nothing was accumulated.
func (m moments) mean() float64 {
	if m.SumSign == 0 {
		return 0
	}
	return m.Sum / m.SumSign
}

func (m moments) variance() float64 {
	if m.SumSign == 0 {
		return 0
	}
	mu := m.mean()
	return m.SumSq/m.SumSign - mu*mu
}

func (m moments) reduce(ctx context.Context, comm reduce.Communicator) (moments, error) {
	f, err := comm.AllReduceFloat64s(ctx, []float64{m.Sum, m.SumSq, m.SumSign})
	if err != nil {
		return moments{}, err
	}
	n, err := reduce.SumUint64(ctx, comm, m.Count)
	if err != nil {
		return moments{}, err
	}
	return moments{Sum: f[0], SumSq: f[1], SumSign: f[2], Count: n}, nil
}

func (m moments) marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *moments) unmarshal(b []byte) error {
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, m); err != nil {
		return fmt.Errorf("decode moments: %w", err)
	}
	return nil
}

// Energy measures the energy per site.
type Energy struct {
	lat  *Lattice
	beta float64

	local     moments
	collected *moments
}

// NewEnergy creates the measure.
func NewEnergy(lat *Lattice, beta float64) *Energy {
	return &Energy{lat: lat, beta: beta}
}

// Accumulate records the current energy per site weighted by sign.
func (e *Energy) Accumulate(sign float64) error {
	e.local.add(sign, e.lat.Energy()/float64(e.lat.Sites()))
	return nil
}

// CollectResults sums the accumulators of every rank.
func (e *Energy) CollectResults(ctx context.Context, comm reduce.Communicator) error {
	total, err := e.local.reduce(ctx, comm)
	if err != nil {
		return fmt.Errorf("reduce energy: %w", err)
	}
	e.collected = &total
	return nil
}

func (e *Energy) result() moments {
	if e.collected != nil {
		return *e.collected
	}
	return e.local
}

// Count returns the number of accumulations, over all ranks once collected.
func (e *Energy) Count() uint64 { return e.result().Count }

// Mean returns the average energy per site.
func (e *Energy) Mean() float64 { return e.result().mean() }

// SpecificHeat returns beta^2 * N * Var(E/N).
func (e *Energy) SpecificHeat() float64 {
	return e.beta * e.beta * float64(e.lat.Sites()) * e.result().variance()
}

// MarshalBinary encodes the local accumulators.
func (e *Energy) MarshalBinary() ([]byte, error) { return e.local.marshal() }

// UnmarshalBinary restores the local accumulators and drops collected totals.
func (e *Energy) UnmarshalBinary(b []byte) error {
	e.collected = nil
	return e.local.unmarshal(b)
}

// Magnetization measures the absolute magnetization per site.
type Magnetization struct {
	lat  *Lattice
	beta float64

	local     moments
	collected *moments
}

// NewMagnetization creates the measure.
func NewMagnetization(lat *Lattice, beta float64) *Magnetization {
	return &Magnetization{lat: lat, beta: beta}
}

// Accumulate records |M|/N weighted by sign.
func (m *Magnetization) Accumulate(sign float64) error {
	v := math.Abs(float64(m.lat.Magnetization())) / float64(m.lat.Sites())
	m.local.add(sign, v)
	return nil
}

// CollectResults sums the accumulators of every rank.
func (m *Magnetization) CollectResults(ctx context.Context, comm reduce.Communicator) error {
	total, err := m.local.reduce(ctx, comm)
	if err != nil {
		return fmt.Errorf("reduce magnetization: %w", err)
	}
	m.collected = &total
	return nil
}

func (m *Magnetization) result() moments {
	if m.collected != nil {
		return *m.collected
	}
	return m.local
}

// Count returns the number of accumulations, over all ranks once collected.
func (m *Magnetization) Count() uint64 { return m.result().Count }

// Mean returns the average |M|/N.
func (m *Magnetization) Mean() float64 { return m.result().mean() }

// Susceptibility returns beta * N * Var(|M|/N).
func (m *Magnetization) Susceptibility() float64 {
	return m.beta * float64(m.lat.Sites()) * m.result().variance()
}

// MarshalBinary encodes the local accumulators.
func (m *Magnetization) MarshalBinary() ([]byte, error) { return m.local.marshal() }

// UnmarshalBinary restores the local accumulators and drops collected totals.
func (m *Magnetization) UnmarshalBinary(b []byte) error {
	m.collected = nil
	return m.local.unmarshal(b)
}
