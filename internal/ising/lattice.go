// Package ising provides Monte Carlo collaborators for the two-dimensional
// Ising model on a periodic square lattice: a single spin-flip move and
// energy and magnetization measures.
package ising

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/seantiz/montecarlo/internal/rng"
)

// ErrDrift is returned by Verify when the incrementally tracked observables
// disagree with a full recomputation.
var ErrDrift = errors.New("lattice observables drifted")

// Lattice is an L x L grid of ±1 spins with coupling J = 1 and external
// field H. Energy and magnetization are kept up to date on every flip.
type Lattice struct {
	size  int
	field float64
	spins []int8

	energy        float64
	magnetization int
}

// NewLattice creates a lattice. A cold lattice has every spin up; otherwise
// spins are drawn from src.
func NewLattice(size int, field float64, src rng.Source, cold bool) (*Lattice, error) {
	if size < 2 {
		return nil, fmt.Errorf("lattice size %d: must be >= 2", size)
	}
	l := &Lattice{
		size:  size,
		field: field,
		spins: make([]int8, size*size),
	}
	for i := range l.spins {
		l.spins[i] = 1
		if !cold && src.Float64() < 0.5 {
			l.spins[i] = -1
		}
	}
	l.recompute()
	return l, nil
}

// Size returns L.
func (l *Lattice) Size() int { return l.size }

// Sites returns L*L.
func (l *Lattice) Sites() int { return len(l.spins) }

// Energy returns the total energy.
func (l *Lattice) Energy() float64 { return l.energy }

// Magnetization returns the sum of all spins.
func (l *Lattice) Magnetization() int { return l.magnetization }

// Spin returns the spin at row r, column c with periodic wrapping.
func (l *Lattice) Spin(r, c int) int8 {
	n := l.size
	return l.spins[((r%n+n)%n)*n+(c%n+n)%n]
}

func (l *Lattice) neighbourSum(i int) int {
	r, c := i/l.size, i%l.size
	return int(l.Spin(r-1, c) + l.Spin(r+1, c) + l.Spin(r, c-1) + l.Spin(r, c+1))
}

// DeltaE is the energy change of flipping site i.
func (l *Lattice) DeltaE(i int) float64 {
	s := float64(l.spins[i])
	return 2 * s * (float64(l.neighbourSum(i)) + l.field)
}

// Flip flips site i and updates the observables.
func (l *Lattice) Flip(i int) {
	l.energy += l.DeltaE(i)
	l.magnetization -= 2 * int(l.spins[i])
	l.spins[i] = -l.spins[i]
}

func (l *Lattice) recompute() {
	e := 0.0
	m := 0
	for i, s := range l.spins {
		r, c := i/l.size, i%l.size
		e -= float64(s) * float64(l.Spin(r, c+1)+l.Spin(r+1, c))
		e -= l.field * float64(s)
		m += int(s)
	}
	l.energy = e
	l.magnetization = m
}

// Verify recomputes the observables from scratch and compares them with the
// tracked values.
func (l *Lattice) Verify() error {
	e, m := l.energy, l.magnetization
	l.recompute()
	if math.Abs(e-l.energy) > 1e-9 || m != l.magnetization {
		return fmt.Errorf("energy %g vs %g, magnetization %d vs %d: %w", e, l.energy, m, l.magnetization, ErrDrift)
	}
	return nil
}

// MarshalBinary encodes the size followed by one byte per spin.
func (l *Lattice) MarshalBinary() ([]byte, error) {
	out := binary.LittleEndian.AppendUint32(nil, uint32(l.size))
	for _, s := range l.spins {
		out = append(out, byte(s))
	}
	return out, nil
}

// UnmarshalBinary restores spins written by MarshalBinary. The size must
// match.
func (l *Lattice) UnmarshalBinary(b []byte) error {
	if len(b) < 4 {
		return fmt.Errorf("lattice state: %d bytes", len(b))
	}
	size := int(binary.LittleEndian.Uint32(b))
	if size != l.size || len(b) != 4+size*size {
		return fmt.Errorf("lattice state of size %d, want %d", size, l.size)
	}
	for i, v := range b[4:] {
		s := int8(v)
		if s != 1 && s != -1 {
			return fmt.Errorf("lattice state: spin %d is %d", i, s)
		}
		l.spins[i] = s
	}
	l.recompute()
	return nil
}
