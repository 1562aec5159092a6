package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hazz-dev/urlmedic/internal/checker"
)

// Outcome label values of urlmedic_checks_total.
const (
	OutcomeOK        = "ok"
	OutcomeHTTPError = "http_error"
	OutcomeError     = "error"
)

// Collector records per-target check metrics.
type Collector struct {
	checksTotal    *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	statusChanges  *prometheus.CounterVec
	lastRunFailed  *prometheus.GaugeVec
	lastRunChecked *prometheus.GaugeVec
}

// NewCollector registers the collector's metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		checksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "urlmedic_checks_total",
				Help: "Total number of URL checks performed",
			},
			[]string{"target", "outcome"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "urlmedic_run_duration_seconds",
				Help:    "Duration of a full batch run",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
			[]string{"target"},
		),
		statusChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "urlmedic_status_changes_total",
				Help: "Total number of status changes between consecutive runs",
			},
			[]string{"target"},
		),
		lastRunFailed: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "urlmedic_last_run_failed",
				Help: "Number of URLs that failed with a network error in the latest run",
			},
			[]string{"target"},
		),
		lastRunChecked: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "urlmedic_last_run_timestamp_seconds",
				Help: "Unix time the latest run finished",
			},
			[]string{"target"},
		),
	}
}

// RecordRun records the results of one batch run.
func (c *Collector) RecordRun(target string, results checker.Set, duration time.Duration, finishedAt time.Time) {
	for _, r := range results {
		c.checksTotal.WithLabelValues(target, Outcome(r)).Inc()
	}
	c.runDuration.WithLabelValues(target).Observe(duration.Seconds())
	c.lastRunFailed.WithLabelValues(target).Set(float64(results.Failed()))
	c.lastRunChecked.WithLabelValues(target).Set(float64(finishedAt.Unix()))
}

// RecordChanges adds n status changes for target.
func (c *Collector) RecordChanges(target string, n int) {
	c.statusChanges.WithLabelValues(target).Add(float64(n))
}

// Outcome classifies a result for the outcome label.
func Outcome(r checker.Result) string {
	switch {
	case r.Failed():
		return OutcomeError
	case r.StatusCode >= 400:
		return OutcomeHTTPError
	default:
		return OutcomeOK
	}
}
