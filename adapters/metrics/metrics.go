// Package metrics provides Prometheus metrics collection for erpkit.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "erpkit"

// Collector holds all Prometheus metrics for erpkit.
type Collector struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Record metrics
	MutationsTotal     *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec

	// Export metrics
	ExportsTotal *prometheus.CounterVec
	ExportRows   *prometheus.HistogramVec

	// Change feed
	FeedClients prometheus.Gauge

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a new metrics collector registered with the default registry.
func New() *Collector {
	return build(promauto.With(prometheus.DefaultRegisterer))
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	return build(promauto.With(reg))
}

func build(factory promauto.Factory) *Collector {
	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),
		MutationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mutations_total",
				Help:      "Record mutations by module, operation and result",
			},
			[]string{"module", "op", "result"},
		),
		ValidationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_failures_total",
				Help:      "Submissions rejected by validation",
			},
			[]string{"module"},
		),
		ExportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exports_total",
				Help:      "Exports produced by format and result",
			},
			[]string{"format", "result"},
		),
		ExportRows: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "export_rows",
				Help:      "Rows per export",
				Buckets:   prometheus.ExponentialBuckets(10, 4, 7),
			},
			[]string{"format"},
		),
		FeedClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "change_feed_clients",
				Help:      "Connected change feed websocket clients",
			},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}

// Mutation results.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// RecordMutation counts one create, update or delete.
func (c *Collector) RecordMutation(module, op, result string) {
	if result == ResultInvalid {
		c.ValidationFailures.WithLabelValues(module).Inc()
	}
	c.MutationsTotal.WithLabelValues(module, op, result).Inc()
}

// RecordExport counts one export.
func (c *Collector) RecordExport(format string, rows int, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	c.ExportsTotal.WithLabelValues(format, result).Inc()
	if err == nil {
		c.ExportRows.WithLabelValues(format).Observe(float64(rows))
	}
}

// RecordRequest records a finished HTTP request. route is the matched
// route pattern, never the raw path.
func (c *Collector) RecordRequest(method, route string, status int, d time.Duration) {
	c.RequestsTotal.WithLabelValues(method, route, statusClass(status)).Inc()
	c.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// AddFeedClients moves the connected change feed client gauge by delta.
func (c *Collector) AddFeedClients(delta int) {
	c.FeedClients.Add(float64(delta))
}

// RecordReload records a config reload attempt.
func (c *Collector) RecordReload(err error, at time.Time) {
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
	c.ConfigLastReload.Set(float64(at.Unix()))
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return strconv.Itoa(status)
	}
	return strconv.Itoa(status/100) + "xx"
}
