package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "montecarlo_cycles_total",
			Help: "Total number of completed cycles per phase.",
		},
		[]string{"phase"},
	)

	stepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "montecarlo_steps_total",
			Help: "Total number of Metropolis steps per phase.",
		},
		[]string{"phase"},
	)

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "montecarlo_runs_total",
			Help: "Total number of runs per phase and exit status.",
		},
		[]string{"phase", "status"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "montecarlo_run_duration_seconds",
			Help:    "Wall-clock duration of runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
		[]string{"phase"},
	)
)

func init() {
	prometheus.MustRegister(cyclesTotal)
	prometheus.MustRegister(stepsTotal)
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(runDuration)
}
