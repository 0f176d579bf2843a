// Package metrics exports batch run statistics to Prometheus.
package metrics

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/n8nkit/itembatch/batch"
)

// DefaultNamespace is used when NewPrometheusCollector gets an empty
// namespace.
const DefaultNamespace = "itembatch"

// PrometheusCollector is a batch.StatsCollector that records run, item and
// accessor events as Prometheus metrics. It also keeps in-memory totals so
// GetStats works as with batch.BasicStatsCollector.
type PrometheusCollector struct {
	*batch.BasicStatsCollector

	runsStarted     prometheus.Counter
	runsCompleted   *prometheus.CounterVec
	runDuration     prometheus.Histogram
	runSize         prometheus.Histogram
	lastSuccessRate prometheus.Gauge
	itemsProcessed  prometheus.Counter
	itemErrors      *prometheus.CounterVec
	accessorErrors  *prometheus.CounterVec
	accessorRetries *prometheus.CounterVec
}

// NewPrometheusCollector creates the collector and registers its metrics
// with reg. If reg is nil, prometheus.DefaultRegisterer is used.
func NewPrometheusCollector(reg prometheus.Registerer, namespace string) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	pc := &PrometheusCollector{
		BasicStatsCollector: batch.NewBasicStatsCollector(),

		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Total number of batch runs started",
		}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_completed_total",
			Help:      "Total number of batch runs completed, by whether StopOnError ended them",
		}, []string{"stopped"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of batch runs in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		runSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_items",
			Help:      "Number of input items per batch run",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		lastSuccessRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success_rate",
			Help:      "Fraction of items that succeeded in the most recent run",
		}),
		itemsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_processed_total",
			Help:      "Total number of items processed successfully",
		}),
		itemErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_errors_total",
			Help:      "Total number of failed items, by error kind",
		}, []string{"kind"}),
		accessorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accessor_errors_total",
			Help:      "Total number of accessor calls that failed, by accessor",
		}, []string{"accessor"}),
		accessorRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accessor_retries_total",
			Help:      "Total number of accessor retries, by accessor",
		}, []string{"accessor"}),
	}

	for _, c := range []prometheus.Collector{
		pc.runsStarted, pc.runsCompleted, pc.runDuration, pc.runSize, pc.lastSuccessRate,
		pc.itemsProcessed, pc.itemErrors, pc.accessorErrors, pc.accessorRetries,
	} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "register batch metrics")
		}
	}

	return pc, nil
}

// RecordRunStart implements the batch.StatsCollector interface.
func (pc *PrometheusCollector) RecordRunStart(items int) {
	pc.BasicStatsCollector.RecordRunStart(items)
	pc.runsStarted.Inc()
	pc.runSize.Observe(float64(items))
}

// RecordRunComplete implements the batch.StatsCollector interface.
func (pc *PrometheusCollector) RecordRunComplete(stats batch.RunStats) {
	pc.BasicStatsCollector.RecordRunComplete(stats)

	stopped := "false"
	if stats.Stopped {
		stopped = "true"
	}
	pc.runsCompleted.WithLabelValues(stopped).Inc()
	pc.runDuration.Observe(stats.Duration.Seconds())
	if stats.Total > 0 {
		pc.lastSuccessRate.Set(stats.SuccessRate)
	}
}

// RecordItemProcessed implements the batch.StatsCollector interface.
func (pc *PrometheusCollector) RecordItemProcessed() {
	pc.BasicStatsCollector.RecordItemProcessed()
	pc.itemsProcessed.Inc()
}

// RecordItemError implements the batch.StatsCollector interface.
func (pc *PrometheusCollector) RecordItemError(kind batch.ErrorKind) {
	pc.BasicStatsCollector.RecordItemError(kind)
	pc.itemErrors.WithLabelValues(string(kind)).Inc()
}

// RecordAccessorError implements the batch.StatsCollector interface.
func (pc *PrometheusCollector) RecordAccessorError(name string) {
	pc.BasicStatsCollector.RecordAccessorError(name)
	pc.accessorErrors.WithLabelValues(name).Inc()
}

// RecordAccessorRetry implements the batch.StatsCollector interface.
func (pc *PrometheusCollector) RecordAccessorRetry(name string) {
	pc.BasicStatsCollector.RecordAccessorRetry(name)
	pc.accessorRetries.WithLabelValues(name).Inc()
}
