// Package engine drives a Markov chain Monte Carlo simulation. An Engine
// owns a move registry, a measure registry and the running sign. Run performs
// cycles of Metropolis steps, optionally followed by an accumulation of every
// measure, until the requested number of cycles is reached, a stop callback
// fires or an interrupt is received.
//
// Engines are single-goroutine objects. Parallel simulations run one engine
// per rank and meet in CollectResults through a reduce.Communicator.
// Progress and Broker are the only methods safe to call from other goroutines.
package engine
