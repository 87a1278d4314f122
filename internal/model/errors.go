package model

import "errors"

// Registration and protocol errors shared by the registries and the engine.
var (
	// ErrDuplicateName is returned when a move or measure name is already registered.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrInvalidWeight is returned for a non-positive or non-finite proposition weight.
	ErrInvalidWeight = errors.New("invalid proposition weight")

	// ErrUnknownHandle is returned when removing a measure through a stale or foreign handle.
	ErrUnknownHandle = errors.New("unknown measure handle")

	// ErrProtocolViolation is returned for accept/reject without a pending move,
	// or attempt while one is pending.
	ErrProtocolViolation = errors.New("move protocol violation")

	// ErrNoMoves is returned when a move is requested from an empty registry.
	ErrNoMoves = errors.New("no moves registered")

	// ErrNaNRatio is returned when a move proposes a NaN weight ratio.
	ErrNaNRatio = errors.New("move returned NaN ratio")

	// ErrRegistrationClosed is returned when registering after the first run started.
	ErrRegistrationClosed = errors.New("registration closed after run started")

	// ErrRunInProgress is returned when a run is started from inside another run.
	ErrRunInProgress = errors.New("run already in progress")

	// ErrInvalidTransition is returned when the engine cannot enter a phase
	// from its current one.
	ErrInvalidTransition = errors.New("invalid phase transition")

	// ErrCheckpointMismatch is returned when a checkpoint does not match the
	// moves and measures registered on the target engine.
	ErrCheckpointMismatch = errors.New("checkpoint does not match engine")
)
