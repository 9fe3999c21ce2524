package types

import "errors"

// Sentinel errors for the longpoll library.
//
// These errors provide type-safe error checking using errors.Is() and
// errors.As(). All components should use these sentinel errors for known
// error conditions and wrap external errors with context using
// fmt.Errorf("%s: %w", msg, err).

// Coordinator errors - public API errors returned by the Coordinator.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrFilterRequired is returned when the visibility filter is nil.
	ErrFilterRequired = errors.New("visibility filter is required")

	// ErrAlreadyStarted is returned when Start is called on an already running coordinator.
	ErrAlreadyStarted = errors.New("coordinator already started")

	// ErrNotStarted is returned when operations require a started coordinator.
	ErrNotStarted = errors.New("coordinator not started")

	// ErrInvalidStreamID is returned for a syntactically malformed stream ID.
	// This is a user error caught before any lookup; it is never retried.
	ErrInvalidStreamID = errors.New("invalid stream ID")

	// ErrStreamNotFound is returned when a lookup or poll request timed out.
	// It covers "never existed", "expired via keep-alive" and "transient
	// unreachability" indistinguishably. Callers recover by creating a new
	// stream, never by retrying the same ID.
	ErrStreamNotFound = errors.New("stream not found")
)

// Codec errors - wire-level protocol violations, fatal to the single
// message but never to the session.
var (
	// ErrUnsupportedMessage is returned when encoding a message kind outside
	// the closed three-kind set.
	ErrUnsupportedMessage = errors.New("unsupported message kind")

	// ErrMalformedMessage is returned when decoding input that is neither a
	// recognized marker literal nor a well-formed event list.
	ErrMalformedMessage = errors.New("malformed message")
)

// Registry errors - returned by Registry backends.
var (
	// ErrNameTaken is returned when registering a name that already has a
	// live local binding.
	ErrNameTaken = errors.New("name already registered")

	// ErrRegistryClosed is returned when using a registry after Close.
	ErrRegistryClosed = errors.New("registry closed")

	// ErrNATSConnectionRequired is returned when the NATS connection is nil.
	ErrNATSConnectionRequired = errors.New("NATS connection is required")
)
