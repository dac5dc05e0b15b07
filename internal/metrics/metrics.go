// Package metrics exposes batch ingestion counters for Prometheus. The CLI
// is short-lived, so metrics are exported through the node_exporter textfile
// collector rather than scraped.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "newswire"

// Collector is safe to use as a nil pointer; every method is then a no-op.
type Collector struct {
	registry *prometheus.Registry

	Batches         *prometheus.CounterVec
	Items           *prometheus.CounterVec
	Duplicates      *prometheus.CounterVec
	AlertsTriggered prometheus.Counter
	Fallbacks       *prometheus.CounterVec
	BatchDuration   prometheus.Histogram
	LastSuccess     prometheus.Gauge
}

func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		Batches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "batches_total",
			Help:      "Ingest batches by outcome.",
		}, []string{"status"}),
		Items: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "items_total",
			Help:      "Candidate items by outcome.",
		}, []string{"outcome"}),
		Duplicates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dedup",
			Name:      "duplicates_total",
			Help:      "Duplicates rejected by detection path.",
		}, []string{"type"}),
		AlertsTriggered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "triggered_total",
			Help:      "Alert triggers recorded.",
		}),
		Fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "fallbacks_total",
			Help:      "Enrichment steps that fell back to defaults.",
		}, []string{"step"}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "batch_duration_seconds",
			Help:      "Wall time of one ingest batch.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last committed batch.",
		}),
	}
}

// BatchOutcome is the slice of a batch result the collector records.
type BatchOutcome struct {
	Status          string
	Saved           int
	Duplicates      int
	Skipped         int
	Errors          int
	AlertsTriggered int
	DuplicateTypes  map[string]int
	Duration        time.Duration
	FinishedAt      time.Time
}

func (c *Collector) ObserveBatch(o BatchOutcome) {
	if c == nil {
		return
	}
	c.Batches.WithLabelValues(o.Status).Inc()
	c.Items.WithLabelValues("saved").Add(float64(o.Saved))
	c.Items.WithLabelValues("duplicate").Add(float64(o.Duplicates))
	c.Items.WithLabelValues("skipped").Add(float64(o.Skipped))
	c.Items.WithLabelValues("error").Add(float64(o.Errors))
	for kind, n := range o.DuplicateTypes {
		c.Duplicates.WithLabelValues(kind).Add(float64(n))
	}
	c.AlertsTriggered.Add(float64(o.AlertsTriggered))
	c.BatchDuration.Observe(o.Duration.Seconds())
	if o.Status == "completed" && !o.FinishedAt.IsZero() {
		c.LastSuccess.Set(float64(o.FinishedAt.Unix()))
	}
}

func (c *Collector) ObserveFallback(step string) {
	if c == nil {
		return
	}
	c.Fallbacks.WithLabelValues(step).Inc()
}

func (c *Collector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return prometheus.NewRegistry()
	}
	return c.registry
}

// WriteTextfile atomically writes every metric in the textfile format.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
