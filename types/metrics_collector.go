package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// All methods are called from internal goroutines and must be thread-safe.
//
// This interface composes smaller, domain-focused interfaces for better modularity.
type MetricsCollector interface {
	SessionMetrics
	PollMetrics
	NotifyMetrics
}

// Poll outcome labels recorded via PollMetrics.RecordPoll.
const (
	PollOutcomeDelivered = "delivered"
	PollOutcomeNotFound  = "not_found"
	PollOutcomeInvalidID = "invalid_id"
)

// SessionMetrics defines metrics for session lifecycle events.
type SessionMetrics interface {
	// RecordSessionCreated records a new session spawn.
	RecordSessionCreated()

	// RecordSessionExpired records a keep-alive driven session termination.
	RecordSessionExpired()

	// SetActiveSessions sets the current live session count (gauge metric).
	SetActiveSessions(count int)
}

// PollMetrics defines metrics for the client-facing poll operation.
type PollMetrics interface {
	// RecordPoll records a poll outcome (delivered, not_found, invalid_id).
	RecordPoll(outcome string)

	// ObserveBatchSize observes the size of a delivered batch. Zero is a
	// valid observation: an empty batch is a meaningful reply.
	ObserveBatchSize(size int)

	// ObservePollLatency observes end-to-end poll latency in seconds.
	ObservePollLatency(seconds float64)
}

// NotifyMetrics defines metrics for broadcast notification processing.
type NotifyMetrics interface {
	// RecordNotify records one processed notification with its raw and
	// post-filter visible identifier counts.
	RecordNotify(raw, visible int)

	// ObserveFilterLatency observes visibility filter call latency in seconds.
	ObserveFilterLatency(seconds float64)

	// RecordFilterError records a visibility filter failure.
	RecordFilterError()

	// RecordDecodeDropped records an inbound wire message dropped because it
	// failed to decode.
	RecordDecodeDropped()
}
