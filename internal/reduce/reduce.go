package reduce

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrShapeMismatch is returned when ranks contribute different kinds or lengths
// of data to the same collective call.
var ErrShapeMismatch = errors.New("reduction shape mismatch across ranks")

// Communicator is a handle on a fixed set of cooperating ranks.
type Communicator interface {
	// Rank returns this process's index in [0, Size()).
	Rank() int

	// Size returns the number of ranks.
	Size() int

	// AllReduceUint64s returns the element-wise sum of vals over all ranks.
	AllReduceUint64s(ctx context.Context, vals []uint64) ([]uint64, error)

	// AllReduceFloat64s returns the element-wise sum of vals over all ranks.
	AllReduceFloat64s(ctx context.Context, vals []float64) ([]float64, error)
}

// SumUint64 reduces a single counter.
func SumUint64(ctx context.Context, c Communicator, v uint64) (uint64, error) {
	out, err := c.AllReduceUint64s(ctx, []uint64{v})
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// SumFloat64 reduces a single value.
func SumFloat64(ctx context.Context, c Communicator, v float64) (float64, error) {
	out, err := c.AllReduceFloat64s(ctx, []float64{v})
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

type self struct{}

// Self returns the communicator of a single, unaccompanied process.
func Self() Communicator { return self{} }

func (self) Rank() int { return 0 }
func (self) Size() int { return 1 }

func (self) AllReduceUint64s(_ context.Context, vals []uint64) ([]uint64, error) {
	return append([]uint64(nil), vals...), nil
}

func (self) AllReduceFloat64s(_ context.Context, vals []float64) ([]float64, error) {
	return append([]float64(nil), vals...), nil
}

// round is one collective operation in progress.
type round struct {
	done    chan struct{}
	acc     any
	arrived int
	err     error
}

func newRound() *round {
	return &round{done: make(chan struct{})}
}

// group is the shared state of an in-process rank set.
type group struct {
	size int
	mu   sync.Mutex
	cur  *round
}

// member is the Communicator handed to one rank of a group.
type member struct {
	g    *group
	rank int
}

// NewGroup creates n communicators sharing one in-process reduction group.
// Communicator i has rank i. Each must be used by exactly one goroutine.
func NewGroup(n int) ([]Communicator, error) {
	if n < 1 {
		return nil, fmt.Errorf("group size must be >= 1, got %d", n)
	}
	g := &group{size: n, cur: newRound()}
	comms := make([]Communicator, n)
	for i := range comms {
		comms[i] = &member{g: g, rank: i}
	}
	return comms, nil
}

func (m *member) Rank() int { return m.rank }
func (m *member) Size() int { return m.g.size }

func (m *member) AllReduceUint64s(ctx context.Context, vals []uint64) ([]uint64, error) {
	return allReduce(ctx, m.g, vals)
}

func (m *member) AllReduceFloat64s(ctx context.Context, vals []float64) ([]float64, error) {
	return allReduce(ctx, m.g, vals)
}

// allReduce contributes vals to the current round and blocks until every rank
// has contributed.
func allReduce[T uint64 | float64](ctx context.Context, g *group, vals []T) ([]T, error) {
	g.mu.Lock()
	r := g.cur
	if r.arrived == 0 {
		r.acc = append([]T(nil), vals...)
	} else {
		acc, ok := r.acc.([]T)
		if !ok || len(acc) != len(vals) {
			if r.err == nil {
				r.err = ErrShapeMismatch
			}
		} else {
			for i, v := range vals {
				acc[i] += v
			}
		}
	}
	r.arrived++
	if r.arrived == g.size {
		close(r.done)
		g.cur = newRound()
	}
	g.mu.Unlock()

	select {
	case <-r.done:
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for peers: %w", ctx.Err())
	}
	if r.err != nil {
		return nil, r.err
	}
	acc := r.acc.([]T)
	return append([]T(nil), acc...), nil
}
