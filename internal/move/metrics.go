package move

import "github.com/prometheus/client_golang/prometheus"

// Metric label values for move outcomes.
const (
	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"
)

var moveDecisionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "montecarlo_move_decisions_total",
		Help: "Total number of Metropolis decisions per move and outcome.",
	},
	[]string{"move", "outcome"},
)

func init() {
	prometheus.MustRegister(moveDecisionsTotal)
}
