// Package reduce defines the reduction context used to aggregate Monte Carlo
// results across cooperating ranks, with a single-process implementation and
// an in-process group whose ranks are goroutines.
//
// All reductions are collective: every rank of a communicator must call the
// same sequence of operations, or the callers block until their contexts end.
package reduce
