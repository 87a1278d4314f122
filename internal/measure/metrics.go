package measure

import "github.com/prometheus/client_golang/prometheus"

var (
	measureAccumulationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "montecarlo_measure_accumulations_total",
			Help: "Total number of accumulate calls per measure.",
		},
		[]string{"measure"},
	)

	measureSecondsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "montecarlo_measure_accumulate_seconds_total",
			Help: "Wall-clock seconds spent in accumulate per timed measure.",
		},
		[]string{"measure"},
	)
)

func init() {
	prometheus.MustRegister(measureAccumulationsTotal)
	prometheus.MustRegister(measureSecondsTotal)
}
