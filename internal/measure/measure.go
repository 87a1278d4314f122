package measure

import (
	"context"

	"github.com/seantiz/montecarlo/internal/model"
	"github.com/seantiz/montecarlo/internal/reduce"
)

// Measure accumulates a statistic once per completed cycle.
type Measure[S model.Sign] interface {
	// Accumulate records the current configuration weighted by sign.
	Accumulate(sign S) error

	// CollectResults merges this measure's estimator across all ranks of comm.
	CollectResults(ctx context.Context, comm reduce.Communicator) error
}

// Handle identifies a registered measure for removal.
type Handle struct {
	id string
}

// String returns the handle identifier.
func (h Handle) String() string { return h.id }
