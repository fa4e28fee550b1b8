// Package metrics exposes Prometheus instrumentation for a seed run. A run
// is a one-shot process, so metrics are meant to be written to a
// node_exporter textfile rather than scraped.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns a private registry so repeated construction in tests never
// collides with the global default registry.
type Collector struct {
	registry *prometheus.Registry

	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	outcomes      *prometheus.CounterVec
	lastRun       prometheus.Gauge
}

// New creates a Collector with all metrics registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pgadmin_seed_queries_total",
				Help: "Statements executed against the pgAdmin configuration database",
			},
			[]string{"statement", "status"},
		),
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pgadmin_seed_query_duration_seconds",
				Help:    "Duration of statements executed against the pgAdmin configuration database",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"statement"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pgadmin_seed_runs_total",
				Help: "Seed runs by outcome",
			},
			[]string{"outcome"},
		),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pgadmin_seed_last_run_timestamp_seconds",
			Help: "Unix time of the last completed seed run",
		}),
	}
	c.registry.MustRegister(c.queries, c.queryDuration, c.outcomes, c.lastRun)
	return c
}

// RecordQuery implements db.MetricsCollector.
func (c *Collector) RecordQuery(query string, d time.Duration, success bool) {
	stmt := statementKind(query)
	status := "ok"
	if !success {
		status = "error"
	}
	c.queries.WithLabelValues(stmt, status).Inc()
	c.queryDuration.WithLabelValues(stmt).Observe(d.Seconds())
}

// RecordOutcome counts one finished run. outcome is "added", "exists",
// "user_not_found" or "error".
func (c *Collector) RecordOutcome(outcome string) {
	c.outcomes.WithLabelValues(outcome).Inc()
	c.lastRun.SetToCurrentTime()
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// WriteTextfile atomically writes the current metrics in the text exposition
// format, for node_exporter's textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

// statementKind reduces a statement to its leading keyword to keep label
// cardinality bounded.
func statementKind(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}
