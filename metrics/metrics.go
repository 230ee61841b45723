// Package metrics holds the Prometheus collectors of a phenotree session.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Turn outcome label values.
const (
	OutcomeConversational = "conversational"
	OutcomeGraph          = "graph"
	OutcomeFailed         = "failed"
	OutcomeStale          = "stale"
)

// Collector holds all Prometheus metrics for a session. A nil *Collector is
// valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	Turns           *prometheus.CounterVec
	Rejected        *prometheus.CounterVec
	BackendDuration prometheus.Histogram
	PersistFailures *prometheus.CounterVec
	CanvasEdits     prometheus.Counter
	Resets          prometheus.Counter
}

// NewCollector creates a collector registered on its own registry.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Completed assistant turns by outcome",
		}, []string{"outcome"}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_rejected_total",
			Help:      "Submissions dropped by the turn guard",
		}, []string{"reason"}),
		BackendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_duration_seconds",
			Help:      "Time spent waiting for the full backend reply",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
		PersistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Failed snapshot writes by slot",
		}, []string{"slot"}),
		CanvasEdits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "canvas_edits_total",
			Help:      "Structural edits reported by the canvas",
		}),
		Resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Confirmed session resets",
		}),
	}
	c.registry.MustRegister(c.Turns, c.Rejected, c.BackendDuration, c.PersistFailures, c.CanvasEdits, c.Resets)
	return c
}

// Registry returns the registry the collectors live on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// TurnCompleted counts a finished turn by outcome.
func (c *Collector) TurnCompleted(outcome string) {
	if c == nil {
		return
	}
	c.Turns.WithLabelValues(outcome).Inc()
}

// SubmissionRejected counts a submission dropped by the turn guard.
func (c *Collector) SubmissionRejected(reason string) {
	if c == nil {
		return
	}
	c.Rejected.WithLabelValues(reason).Inc()
}

// ObserveBackend records how long the backend took to reply.
func (c *Collector) ObserveBackend(d time.Duration) {
	if c == nil {
		return
	}
	c.BackendDuration.Observe(d.Seconds())
}

// PersistFailed counts a failed slot read or write.
func (c *Collector) PersistFailed(slot string) {
	if c == nil {
		return
	}
	c.PersistFailures.WithLabelValues(slot).Inc()
}

// CanvasEdited counts an edit reported by the canvas.
func (c *Collector) CanvasEdited() {
	if c == nil {
		return
	}
	c.CanvasEdits.Inc()
}

// ResetDone counts a confirmed reset.
func (c *Collector) ResetDone() {
	if c == nil {
		return
	}
	c.Resets.Inc()
}
