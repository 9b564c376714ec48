package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/philiph/caddy-salmon/internal/core/ports"
)

// PrometheusMetricsRecorder records metrics using Prometheus.
type PrometheusMetricsRecorder struct {
	envelopesTotal  *prometheus.CounterVec
	keyLookupsTotal *prometheus.CounterVec
	activitiesTotal *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder creates a new Prometheus metrics recorder
// using the default Prometheus registry.
func NewPrometheusMetricsRecorder() *PrometheusMetricsRecorder {
	return NewPrometheusMetricsRecorderWithRegistry(prometheus.DefaultRegisterer)
}

// NewPrometheusMetricsRecorderWithRegistry creates a new Prometheus metrics recorder
// with a custom registry. Use this for testing.
func NewPrometheusMetricsRecorderWithRegistry(reg prometheus.Registerer) *PrometheusMetricsRecorder {
	envelopesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "salmon_envelopes_total",
		Help: "Total inbound salmon envelopes by outcome",
	}, []string{"feed_id", "result", "code"})

	keyLookupsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "salmon_key_lookups_total",
		Help: "Total author key lookups",
	}, []string{"source", "result"})

	activitiesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "salmon_activities_total",
		Help: "Total verified activities dispatched",
	}, []string{"verb"})

	reg.MustRegister(
		envelopesTotal,
		keyLookupsTotal,
		activitiesTotal,
	)

	return &PrometheusMetricsRecorder{
		envelopesTotal:  envelopesTotal,
		keyLookupsTotal: keyLookupsTotal,
		activitiesTotal: activitiesTotal,
	}
}

// RecordEnvelope records the outcome of an inbound envelope.
func (p *PrometheusMetricsRecorder) RecordEnvelope(feedID string, verified bool, code string) {
	result := "rejected"
	if verified {
		result = "verified"
	}
	p.envelopesTotal.WithLabelValues(feedID, result, code).Inc()
}

// RecordKeyLookup records a key discovery attempt.
func (p *PrometheusMetricsRecorder) RecordKeyLookup(source string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	p.keyLookupsTotal.WithLabelValues(source, result).Inc()
}

// RecordActivity records a dispatched activity.
func (p *PrometheusMetricsRecorder) RecordActivity(verb string) {
	p.activitiesTotal.WithLabelValues(verb).Inc()
}

// Ensure PrometheusMetricsRecorder implements ports.MetricsRecorder
var _ ports.MetricsRecorder = (*PrometheusMetricsRecorder)(nil)
