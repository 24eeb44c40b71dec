package exporter

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jpalmerr/hapulse/internal/poller"
)

const selfNamespace = "hapulse"

// Poll results recorded by [PollMetrics].
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultTimeout = "timeout"
)

// PollMetrics records poll outcomes per source.
type PollMetrics struct {
	polls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	failures *prometheus.GaugeVec
	entities *prometheus.GaugeVec
}

// NewPollMetrics creates the poll metrics and registers them with reg.
func NewPollMetrics(reg prometheus.Registerer) *PollMetrics {
	factory := promauto.With(reg)

	return &PollMetrics{
		polls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: selfNamespace,
			Name:      "polls_total",
			Help:      "Stats polls by source and result.",
		}, []string{"source", "result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: selfNamespace,
			Name:      "poll_duration_seconds",
			Help:      "Time taken to fetch and parse the stats export.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"source"}),
		failures: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: selfNamespace,
			Name:      "consecutive_failures",
			Help:      "Failed polls since the last success.",
		}, []string{"source"}),
		entities: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: selfNamespace,
			Name:      "entities",
			Help:      "Discovered entities per source.",
		}, []string{"source"}),
	}
}

// Observe records one poll and the source's entity count after it.
func (m *PollMetrics) Observe(r poller.Refresh, entities int) {
	result := ResultSuccess
	if r.Err != nil {
		result = ResultError
		if errors.Is(r.Err, poller.ErrFetchTimeout) {
			result = ResultTimeout
		}
	}

	m.polls.WithLabelValues(r.Source, result).Inc()
	m.duration.WithLabelValues(r.Source).Observe(r.Latency.Seconds())
	m.failures.WithLabelValues(r.Source).Set(float64(r.ConsecutiveFailures))
	m.entities.WithLabelValues(r.Source).Set(float64(entities))
}

// Unregister removes the poll metrics from reg.
func (m *PollMetrics) Unregister(reg prometheus.Registerer) {
	reg.Unregister(m.polls)
	reg.Unregister(m.duration)
	reg.Unregister(m.failures)
	reg.Unregister(m.entities)
}
