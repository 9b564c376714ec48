package metrics

import (
	"github.com/philiph/caddy-salmon/internal/core/ports"
)

// NoopMetricsRecorder is a no-op implementation for when metrics are disabled.
// All methods are safe to call and do nothing.
type NoopMetricsRecorder struct{}

// NewNoopMetricsRecorder creates a new no-op metrics recorder.
func NewNoopMetricsRecorder() *NoopMetricsRecorder {
	return &NoopMetricsRecorder{}
}

// RecordEnvelope is a no-op.
func (n *NoopMetricsRecorder) RecordEnvelope(feedID string, verified bool, code string) {}

// RecordKeyLookup is a no-op.
func (n *NoopMetricsRecorder) RecordKeyLookup(source string, success bool) {}

// RecordActivity is a no-op.
func (n *NoopMetricsRecorder) RecordActivity(verb string) {}

// Ensure NoopMetricsRecorder implements ports.MetricsRecorder
var _ ports.MetricsRecorder = (*NoopMetricsRecorder)(nil)
