package move

import "github.com/seantiz/montecarlo/internal/model"

// Move is a randomized local change to the sampled configuration.
// Every Attempt is followed by exactly one Accept or Reject before the next
// Attempt.
type Move[S model.Sign] interface {
	// Attempt computes the ratio of the statistical weight of the proposed
	// configuration to the current one. It must not commit side effects.
	Attempt() (S, error)

	// Accept commits the change computed by the last Attempt and returns a
	// sign correction factor.
	Accept() (S, error)

	// Reject discards the proposal and restores any shared state mutated by
	// the last Attempt.
	Reject() error
}

// Func adapts three closures to the Move interface.
type Func[S model.Sign] struct {
	AttemptFn func() (S, error)
	AcceptFn  func() (S, error)
	RejectFn  func() error
}

// Attempt calls AttemptFn.
func (f Func[S]) Attempt() (S, error) { return f.AttemptFn() }

// Accept calls AcceptFn, returning one when it is nil.
func (f Func[S]) Accept() (S, error) {
	if f.AcceptFn == nil {
		return model.FromComplex[S](1), nil
	}
	return f.AcceptFn()
}

// Reject calls RejectFn when set.
func (f Func[S]) Reject() error {
	if f.RejectFn == nil {
		return nil
	}
	return f.RejectFn()
}
