package types

import (
	"context"
	"time"
)

// ReplyFunc sends a single reply to the sender of a delivered message.
//
// A nil ReplyFunc means the message expects no reply (broadcasts). A ReplyFunc
// may be invoked at most once, possibly long after Deliver returned; it is the
// session's record of its current poll waiter.
type ReplyFunc func(Message) error

// Inbox receives messages addressed to a registered session.
//
// Deliver is called from registry transport goroutines and should return
// promptly: sessions satisfy this by enqueueing into their serialized input
// channel, blocking only while that bounded buffer is full and never after
// the session has terminated.
type Inbox interface {
	// Deliver hands a decoded message to the session.
	//
	// Parameters:
	//   - msg: Decoded wire message
	//   - reply: Reply callback for request-style messages, nil for broadcasts
	Deliver(msg Message, reply ReplyFunc)
}

// Handle is a location-transparent reference to a resolved session.
type Handle interface {
	// Request sends msg to the bound session and waits for a single reply.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//   - msg: Message to send
	//   - timeout: Upper bound on the wait for a reply
	//
	// Returns:
	//   - Message: The session's reply
	//   - error: ErrStreamNotFound if the session is gone or never replies in time
	Request(ctx context.Context, msg Message, timeout time.Duration) (Message, error)
}

// Binding represents an active name registration. Closing it withdraws the
// binding and stops broadcast delivery to the inbox.
type Binding interface {
	Close() error
}

// Registry is the cluster-wide name service used to locate sessions and to
// fan event notifications out to them.
//
// Two backends are expected: an in-process map for single-node deployments
// and tests, and a NATS-backed layer for multi-node deployments. Session
// logic stays ignorant of which backend is active.
type Registry interface {
	// Register publishes a location-transparent binding from a logical name to
	// a live inbox. The binding becomes visible from every node within the
	// backend's normal propagation delay.
	//
	// Parameters:
	//   - name: Logical name (the stream ID)
	//   - inbox: Recipient for requests and broadcasts
	//
	// Returns:
	//   - Binding: Handle used to withdraw the registration
	//   - error: ErrNameTaken, ErrRegistryClosed, or a transport error
	Register(name string, inbox Inbox) (Binding, error)

	// Resolve looks a name up cluster-wide within the supplied bound.
	//
	// A not-found result covers "never created" and "already terminated"
	// indistinguishably; absence of a binding is discovered lazily.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//   - name: Logical name to resolve
	//   - timeout: Upper bound on the lookup
	//
	// Returns:
	//   - Handle: Reference to the live session
	//   - error: ErrStreamNotFound if no live binding answered within the bound
	Resolve(ctx context.Context, name string, timeout time.Duration) (Handle, error)

	// Broadcast delivers msg to every currently subscribed inbox,
	// at-least-once, with no ordering guarantee across sessions and no
	// guarantee that a session mid-termination receives it.
	Broadcast(ctx context.Context, msg Message) error

	// Close releases transport resources. Registered bindings become
	// unreachable; their sessions discover this on their next keep-alive tick.
	Close() error
}
