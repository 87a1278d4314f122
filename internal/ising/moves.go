package ising

import (
	"math"

	"github.com/seantiz/montecarlo/internal/rng"
)

// SpinFlip proposes flipping one uniformly chosen site with the Metropolis
// ratio exp(-beta * dE).
type SpinFlip struct {
	lat  *Lattice
	src  rng.Source
	beta float64

	site int
}

// NewSpinFlip creates the move. src should be the engine's random source.
func NewSpinFlip(lat *Lattice, src rng.Source, beta float64) *SpinFlip {
	return &SpinFlip{lat: lat, src: src, beta: beta}
}

// Attempt picks a site and returns the acceptance ratio of flipping it.
func (m *SpinFlip) Attempt() (float64, error) {
	n := m.lat.Sites()
	m.site = min(int(m.src.Float64()*float64(n)), n-1)
	return math.Exp(-m.beta * m.lat.DeltaE(m.site)), nil
}

// Accept flips the chosen site. Ising weights are positive, so the sign
// correction is always one.
func (m *SpinFlip) Accept() (float64, error) {
	m.lat.Flip(m.site)
	return 1, nil
}

// Reject leaves the lattice unchanged.
func (m *SpinFlip) Reject() error { return nil }

// MarshalBinary persists the lattice configuration with the move statistics.
func (m *SpinFlip) MarshalBinary() ([]byte, error) { return m.lat.MarshalBinary() }

// UnmarshalBinary restores the lattice configuration.
func (m *SpinFlip) UnmarshalBinary(b []byte) error { return m.lat.UnmarshalBinary(b) }
