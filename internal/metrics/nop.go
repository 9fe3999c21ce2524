// Package metrics provides MetricsCollector implementations for the
// longpoll library.
package metrics

import "github.com/arloliu/longpoll/types"

// NopMetrics implements types.MetricsCollector with no-op methods.
//
// This is the default implementation used when no collector is provided,
// eliminating nil checks at every recording site.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Returns:
//   - *NopMetrics: Collector that records nothing
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// RecordSessionCreated is a no-op.
func (n *NopMetrics) RecordSessionCreated() {}

// RecordSessionExpired is a no-op.
func (n *NopMetrics) RecordSessionExpired() {}

// SetActiveSessions is a no-op.
func (n *NopMetrics) SetActiveSessions(_ /* count */ int) {}

// RecordPoll is a no-op.
func (n *NopMetrics) RecordPoll(_ /* outcome */ string) {}

// ObserveBatchSize is a no-op.
func (n *NopMetrics) ObserveBatchSize(_ /* size */ int) {}

// ObservePollLatency is a no-op.
func (n *NopMetrics) ObservePollLatency(_ /* seconds */ float64) {}

// RecordNotify is a no-op.
func (n *NopMetrics) RecordNotify(_, _ /* raw, visible */ int) {}

// ObserveFilterLatency is a no-op.
func (n *NopMetrics) ObserveFilterLatency(_ /* seconds */ float64) {}

// RecordFilterError is a no-op.
func (n *NopMetrics) RecordFilterError() {}

// RecordDecodeDropped is a no-op.
func (n *NopMetrics) RecordDecodeDropped() {}
