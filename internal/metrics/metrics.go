// Package metrics exposes Prometheus collectors for lead capture and export.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/leads/internal/core"
	"github.com/JonMunkholm/leads/internal/export"
)

// Capture outcomes.
const (
	OutcomeStored   = "stored"
	OutcomeDisabled = "disabled"
	OutcomeInvalid  = "invalid"
	OutcomeFailed   = "failed"
)

// Collector owns the lead metrics and the registry they are served from.
type Collector struct {
	registry *prometheus.Registry

	captures       *prometheus.CounterVec
	recordsStored  prometheus.Counter
	exports        *prometheus.CounterVec
	exportDuration *prometheus.HistogramVec
	exportRows     prometheus.Counter
}

// NewCollector registers the lead metrics on registry, or on a fresh
// registry when nil. Go runtime and process collectors are included.
func NewCollector(namespace string, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	if namespace == "" {
		namespace = "leads"
	}

	c := &Collector{
		registry: registry,
		captures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capture",
			Name:      "submissions_total",
			Help:      "Form submissions processed, by outcome.",
		}, []string{"outcome"}),
		recordsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capture",
			Name:      "records_stored_total",
			Help:      "Field records written to lead_data.",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "requests_total",
			Help:      "Export requests, by exporter type and status.",
		}, []string{"type", "status"}),
		exportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "duration_seconds",
			Help:      "Time to pivot and render an export.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"type"}),
		exportRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "rows_total",
			Help:      "Lead rows rendered into exports.",
		}),
	}

	registry.MustRegister(c.captures, c.recordsStored, c.exports, c.exportDuration, c.exportRows)
	return c
}

// CaptureFinished counts one submission by the outcome of err.
func (c *Collector) CaptureFinished(err error) {
	c.captures.WithLabelValues(CaptureOutcome(err)).Inc()
}

// RecordsStored adds n stored field records.
func (c *Collector) RecordsStored(n int) {
	c.recordsStored.Add(float64(n))
}

// ExportFinished implements export.Observer. typ must be a registered
// exporter key; an empty typ is counted as "unknown".
func (c *Collector) ExportFinished(typ string, rows int, elapsed time.Duration, err error) {
	if typ == "" {
		typ = "unknown"
	}
	c.exports.WithLabelValues(typ, exportStatus(err)).Inc()
	if err != nil {
		return
	}
	c.exportDuration.WithLabelValues(typ).Observe(elapsed.Seconds())
	c.exportRows.Add(float64(rows))
}

// WatchLimiter publishes the number of running exports.
func (c *Collector) WatchLimiter(namespace string, l *export.Limiter) {
	if namespace == "" {
		namespace = "leads"
	}
	c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "export",
		Name:      "active",
		Help:      "Exports currently rendering.",
	}, func() float64 { return float64(l.ActiveCount()) }))
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// CaptureOutcome classifies a capture result.
func CaptureOutcome(err error) string {
	var ve *core.ValidationError
	switch {
	case err == nil:
		return OutcomeStored
	case core.IsDisabled(err):
		return OutcomeDisabled
	case errors.As(err, &ve):
		return OutcomeInvalid
	default:
		return OutcomeFailed
	}
}

func exportStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, export.ErrTooManyExports):
		return "busy"
	case core.IsNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}
