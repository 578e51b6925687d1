// Package metrics provides Prometheus metrics for the drive client.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the client's collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	fetchesTotal     *prometheus.CounterVec
	fetchDuration    *prometheus.HistogramVec
	staleResponses   *prometheus.CounterVec
	mutationsTotal   *prometheus.CounterVec
	mutationRejected prometheus.Counter
	guardDecisions   *prometheus.CounterVec
	accessResolves   *prometheus.CounterVec
}

// New registers the client collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		fetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "drive_fetches_total",
				Help: "Total number of listing fetches",
			},
			[]string{"kind", "status"},
		),

		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "drive_fetch_duration_seconds",
				Help:    "Listing fetch duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),

		staleResponses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "drive_stale_responses_total",
				Help: "Listing responses discarded because a newer navigation or fetch superseded them",
			},
			[]string{"kind"},
		),

		mutationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "drive_mutations_total",
				Help: "Total number of mutations by operation and outcome",
			},
			[]string{"op", "status"},
		),

		mutationRejected: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "drive_mutations_rejected_total",
				Help: "Mutations rejected because another mutation was pending",
			},
		),

		guardDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "drive_session_guard_decisions_total",
				Help: "Session guard decisions by outcome",
			},
			[]string{"decision"},
		),

		accessResolves: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "drive_access_url_resolves_total",
				Help: "Access URL resolutions by purpose and outcome",
			},
			[]string{"purpose", "status"},
		),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordFetch records a listing fetch ("files" or "folders").
func (m *Metrics) RecordFetch(kind string, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	m.fetchesTotal.WithLabelValues(kind, status(success)).Inc()
	m.fetchDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordStaleResponse counts a discarded listing response.
func (m *Metrics) RecordStaleResponse(kind string) {
	if m == nil {
		return
	}
	m.staleResponses.WithLabelValues(kind).Inc()
}

// RecordMutation records a mutation outcome.
func (m *Metrics) RecordMutation(op string, success bool) {
	if m == nil {
		return
	}
	m.mutationsTotal.WithLabelValues(op, status(success)).Inc()
}

// RecordMutationRejected counts a mutation refused while another was pending.
func (m *Metrics) RecordMutationRejected() {
	if m == nil {
		return
	}
	m.mutationRejected.Inc()
}

// RecordGuardDecision records "allowed", "missing" or "expired".
func (m *Metrics) RecordGuardDecision(decision string) {
	if m == nil {
		return
	}
	m.guardDecisions.WithLabelValues(decision).Inc()
}

// RecordAccessResolve records an access URL resolution ("open" or "download").
func (m *Metrics) RecordAccessResolve(purpose string, success bool) {
	if m == nil {
		return
	}
	m.accessResolves.WithLabelValues(purpose, status(success)).Inc()
}
