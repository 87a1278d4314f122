package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const unmatched = "unmatched"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "montecarlo_http_requests_total",
			Help: "HTTP requests served by the monitoring API.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "montecarlo_http_request_duration_seconds",
			Help:    "Monitoring API request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	reportStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "montecarlo_report_streams_active",
		Help: "Open server-sent event report streams.",
	})
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, reportStreams)
}

// metricsMiddleware records request count and duration. Paths are labelled
// with the chi route pattern so checkpoint names do not create new series.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		path := routePattern(r)
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return unmatched
}

// progressCollector exposes the latest progress snapshot of the attached
// engine at scrape time.
type progressCollector struct {
	monitor Monitor

	percent    *prometheus.Desc
	cycle      *prometheus.Desc
	configID   *prometheus.Desc
	nmeasures  *prometheus.Desc
	acceptance *prometheus.Desc
}

func newProgressCollector(m Monitor) *progressCollector {
	labels := []string{"run_id", "phase"}
	return &progressCollector{
		monitor:    m,
		percent:    prometheus.NewDesc("montecarlo_progress_percent", "Completion of the current run.", labels, nil),
		cycle:      prometheus.NewDesc("montecarlo_current_cycle_number", "Cycles completed over the engine lifetime.", []string{"run_id"}, nil),
		configID:   prometheus.NewDesc("montecarlo_config_id", "Steps attempted over the engine lifetime.", []string{"run_id"}, nil),
		nmeasures:  prometheus.NewDesc("montecarlo_nmeasures", "Accumulations in the current run.", labels, nil),
		acceptance: prometheus.NewDesc("montecarlo_acceptance_rate", "Acceptance rate per move as of the last report.", []string{"run_id", "move"}, nil),
	}
}

func (c *progressCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.percent
	ch <- c.cycle
	ch <- c.configID
	ch <- c.nmeasures
	ch <- c.acceptance
}

func (c *progressCollector) Collect(ch chan<- prometheus.Metric) {
	p := c.monitor.Progress()
	phase := string(p.Phase)
	ch <- prometheus.MustNewConstMetric(c.percent, prometheus.GaugeValue, float64(p.Percent), p.RunID, phase)
	// Restore can move the cycle number backwards.
	ch <- prometheus.MustNewConstMetric(c.cycle, prometheus.GaugeValue, float64(p.CurrentCycleNumber), p.RunID)
	ch <- prometheus.MustNewConstMetric(c.configID, prometheus.GaugeValue, float64(p.ConfigID), p.RunID)
	ch <- prometheus.MustNewConstMetric(c.nmeasures, prometheus.GaugeValue, float64(p.NMeasures), p.RunID, phase)
	for name, rate := range p.AcceptanceRates {
		ch <- prometheus.MustNewConstMetric(c.acceptance, prometheus.GaugeValue, rate, p.RunID, name)
	}
}

// metricsHandler serves the process-wide metrics together with the progress
// of monitor, when one is attached.
func metricsHandler(monitor Monitor) http.Handler {
	if monitor == nil {
		return promhttp.Handler()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(newProgressCollector(monitor))
	return promhttp.HandlerFor(prometheus.Gatherers{prometheus.DefaultGatherer, reg}, promhttp.HandlerOpts{})
}
