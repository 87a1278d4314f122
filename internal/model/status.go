package model

// Status is the exit status of a run. Callers must treat StatusStoppedBySignal
// as a graceful partial result, not an error.
type Status int

// Run exit statuses.
const (
	StatusFinished          Status = 0
	StatusStoppedByCallback Status = 1
	StatusStoppedBySignal   Status = 2
)

func (s Status) String() string {
	switch s {
	case StatusFinished:
		return "finished"
	case StatusStoppedByCallback:
		return "stopped_by_callback"
	case StatusStoppedBySignal:
		return "stopped_by_signal"
	default:
		return "unknown"
	}
}

// Phase is the engine lifecycle state.
type Phase string

// Engine phases.
const (
	PhaseIdle              Phase = "idle"
	PhaseWarmup            Phase = "warmup"
	PhaseAccumulating      Phase = "accumulating"
	PhaseFinished          Phase = "finished"
	PhaseStoppedByCallback Phase = "stopped_by_callback"
	PhaseStoppedBySignal   Phase = "stopped_by_signal"
	PhaseFailed            Phase = "failed"
)

// validTransitions maps each phase to the set of phases it may move to.
// Every run ends in a terminal phase, so warmup reaches accumulation through
// PhaseFinished. PhaseFailed has no way out: a collaborator error leaves the
// sampled configuration in an unknown state.
var validTransitions = map[Phase]map[Phase]bool{
	PhaseIdle: {
		PhaseWarmup:       true,
		PhaseAccumulating: true,
	},
	PhaseWarmup: {
		PhaseFinished:          true,
		PhaseStoppedByCallback: true,
		PhaseStoppedBySignal:   true,
		PhaseFailed:            true,
	},
	PhaseAccumulating: {
		PhaseFinished:          true,
		PhaseStoppedByCallback: true,
		PhaseStoppedBySignal:   true,
		PhaseFailed:            true,
	},
	PhaseFinished: {
		PhaseWarmup:       true,
		PhaseAccumulating: true,
	},
	PhaseStoppedByCallback: {
		PhaseWarmup:       true,
		PhaseAccumulating: true,
	},
	PhaseStoppedBySignal: {
		PhaseWarmup:       true,
		PhaseAccumulating: true,
	},
}

// ValidTransition reports whether moving from one phase to another is allowed.
func ValidTransition(from, to Phase) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// TerminalPhase maps a run status to the phase the engine rests in afterwards.
func TerminalPhase(s Status) Phase {
	switch s {
	case StatusStoppedByCallback:
		return PhaseStoppedByCallback
	case StatusStoppedBySignal:
		return PhaseStoppedBySignal
	default:
		return PhaseFinished
	}
}
