package ports

// MetricsRecorder is the port interface for recording metrics.
// Implementations are adapters (PrometheusMetricsRecorder for production,
// NoopMetricsRecorder for disabled/testing).
type MetricsRecorder interface {
	// RecordEnvelope records the outcome of an inbound envelope.
	// code is "" for a verified envelope, otherwise the rejection code.
	RecordEnvelope(feedID string, verified bool, code string)

	// RecordKeyLookup records a key discovery attempt.
	RecordKeyLookup(source string, success bool)

	// RecordActivity records a dispatched activity by verb.
	RecordActivity(verb string)
}
