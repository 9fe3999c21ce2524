package types

// MessageKind identifies one of the three message kinds that cross process
// boundaries: a payload-bearing notification and two zero-payload markers.
type MessageKind int

const (
	// KindUnknown is the zero value and never a valid wire message.
	KindUnknown MessageKind = iota

	// KindNotify carries an ordered list of event identifiers.
	KindNotify

	// KindPoll asks a session for its next batch.
	KindPoll

	// KindCommit is the internal delivery tick. It never crosses the wire in
	// practice but is part of the closed codec set for completeness.
	KindCommit
)

// String returns a human-readable name for the message kind.
func (k MessageKind) String() string {
	switch k {
	case KindNotify:
		return "notify"
	case KindPoll:
		return "poll"
	case KindCommit:
		return "commit"
	default:
		return "unknown"
	}
}

// Message is the unit of communication between coordinators, sessions and the
// registry. EventIDs is meaningful only for KindNotify; for the marker kinds
// it is always nil.
//
// EventIDs preserves insertion order and is never deduplicated: the same
// identifier may legitimately recur within a batch and across batches.
type Message struct {
	Kind     MessageKind
	EventIDs []string
}

// NewNotify creates a notification message carrying the given event IDs.
//
// Parameters:
//   - ids: Ordered event identifiers (may be empty; an empty batch is a valid reply)
//
// Returns:
//   - Message: Notification message
func NewNotify(ids []string) Message {
	return Message{Kind: KindNotify, EventIDs: ids}
}

// NewPoll creates a poll marker message.
func NewPoll() Message {
	return Message{Kind: KindPoll}
}

// NewCommit creates a commit marker message.
func NewCommit() Message {
	return Message{Kind: KindCommit}
}
