// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics holds the Prometheus collectors exported by the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdiddy/concept-engine/pkg/types"
)

const namespace = "concept_engine"

// Metrics is a set of collectors bound to one registry.
type Metrics struct {
	registry *prometheus.Registry

	// requests counts HTTP requests.
	// Labels: route, status
	requests *prometheus.CounterVec

	// operationDuration measures engine operation latency.
	// Labels: operation (match, explain, pattern)
	operationDuration *prometheus.HistogramVec

	// decisions counts winner-take-all outcomes.
	// Labels: outcome (accepted, confirm, rejected)
	decisions *prometheus.CounterVec

	// repairs counts pattern repair operations.
	// Labels: type (assign_free, swap)
	repairs *prometheus.CounterVec

	// missingRequired counts required concepts left unassigned.
	missingRequired prometheus.Counter
}

// New registers the collectors, plus Go runtime and process collectors, on
// a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "status"}),
		operationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Engine operation latency in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Winner-take-all decisions by outcome",
		}, []string{"outcome"}),
		repairs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pattern",
			Name:      "repairs_total",
			Help:      "Pattern repair operations by type",
		}, []string{"type"}),
		missingRequired: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pattern",
			Name:      "missing_required_total",
			Help:      "Required concepts left unassigned after pattern resolution",
		}),
	}
}

// Registry returns the registry the collectors are bound to.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordRequest counts one HTTP request.
func (m *Metrics) RecordRequest(route string, status int) {
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// RecordOperation observes the duration of an engine operation.
func (m *Metrics) RecordOperation(operation string, d time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordDecision counts a decision outcome.
func (m *Metrics) RecordDecision(d *types.Decision) {
	if d == nil {
		return
	}
	outcome := "rejected"
	switch {
	case d.Accepted && !d.NeedsUserConfirmation:
		outcome = "accepted"
	case d.Accepted:
		outcome = "confirm"
	}
	m.decisions.WithLabelValues(outcome).Inc()
}

// RecordAssignment counts the repairs and missing required concepts of a
// pattern resolution.
func (m *Metrics) RecordAssignment(a *types.Assignment) {
	if a == nil {
		return
	}
	for _, op := range a.Trace.Repairs {
		m.repairs.WithLabelValues(string(op.Type)).Inc()
	}
	m.missingRequired.Add(float64(len(a.Trace.MissingRequired)))
}
