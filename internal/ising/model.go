package ising

import (
	"fmt"

	"github.com/seantiz/montecarlo/internal/engine"
)

// Names under which the collaborators are registered.
const (
	MoveSpinFlip         = "spin_flip"
	MeasureEnergy        = "energy"
	MeasureMagnetization = "magnetization"
)

// Params describes one Ising simulation.
type Params struct {
	Size  int
	Beta  float64
	Field float64
	Cold  bool

	// Verify checks the tracked observables after every cycle.
	Verify bool
}

// Model bundles a lattice with its move and measures.
type Model struct {
	Params        Params
	Lattice       *Lattice
	Flip          *SpinFlip
	Energy        *Energy
	Magnetization *Magnetization
}

// Results summarises a simulation.
type Results struct {
	Size           int     `json:"size"`
	Beta           float64 `json:"beta"`
	Measures       uint64  `json:"measures"`
	Energy         float64 `json:"energy_per_site"`
	SpecificHeat   float64 `json:"specific_heat"`
	Magnetization  float64 `json:"abs_magnetization_per_site"`
	Susceptibility float64 `json:"susceptibility"`
	AcceptanceRate float64 `json:"acceptance_rate"`
}

// Register builds a model and registers it with e. The lattice draws its
// initial configuration and all flips from e's random source.
func Register(e *engine.Engine[float64], p Params) (*Model, error) {
	src := e.RNG()
	lat, err := NewLattice(p.Size, p.Field, src, p.Cold)
	if err != nil {
		return nil, err
	}
	m := &Model{
		Params:        p,
		Lattice:       lat,
		Flip:          NewSpinFlip(lat, src, p.Beta),
		Energy:        NewEnergy(lat, p.Beta),
		Magnetization: NewMagnetization(lat, p.Beta),
	}

	if err := e.AddMove(m.Flip, MoveSpinFlip, 1); err != nil {
		return nil, fmt.Errorf("register ising: %w", err)
	}
	if _, err := e.AddMeasure(m.Energy, MeasureEnergy, true); err != nil {
		return nil, fmt.Errorf("register ising: %w", err)
	}
	if _, err := e.AddMeasure(m.Magnetization, MeasureMagnetization, true); err != nil {
		return nil, fmt.Errorf("register ising: %w", err)
	}
	if p.Verify {
		if err := e.SetAfterCycleDuty(lat.Verify); err != nil {
			return nil, fmt.Errorf("register ising: %w", err)
		}
	}
	return m, nil
}

// Results reports the current estimates, global after CollectResults.
func (m *Model) Results(acceptance map[string]float64) Results {
	return Results{
		Size:           m.Params.Size,
		Beta:           m.Params.Beta,
		Measures:       m.Energy.Count(),
		Energy:         m.Energy.Mean(),
		SpecificHeat:   m.Energy.SpecificHeat(),
		Magnetization:  m.Magnetization.Mean(),
		Susceptibility: m.Magnetization.Susceptibility(),
		AcceptanceRate: acceptance[MoveSpinFlip],
	}
}
