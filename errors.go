package longpoll

import "github.com/arloliu/longpoll/types"

// Sentinel errors returned by the Coordinator.
//
// The canonical definitions live in the types package so internal packages
// can reference them without importing the root package; these variables
// re-export them for user convenience.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = types.ErrInvalidConfig

	// ErrFilterRequired is returned when the visibility filter is nil.
	ErrFilterRequired = types.ErrFilterRequired

	// ErrAlreadyStarted is returned when Start is called on an already running coordinator.
	ErrAlreadyStarted = types.ErrAlreadyStarted

	// ErrNotStarted is returned when operations require a started coordinator.
	ErrNotStarted = types.ErrNotStarted

	// ErrInvalidStreamID is returned for a syntactically malformed stream ID.
	ErrInvalidStreamID = types.ErrInvalidStreamID

	// ErrStreamNotFound is returned when a stream could not be resolved or
	// its session did not answer within the poll bound.
	ErrStreamNotFound = types.ErrStreamNotFound

	// ErrUnsupportedMessage is returned when encoding an unknown message kind.
	ErrUnsupportedMessage = types.ErrUnsupportedMessage

	// ErrMalformedMessage is returned when decoding an invalid wire frame.
	ErrMalformedMessage = types.ErrMalformedMessage

	// ErrNameTaken is returned when registering a stream ID that is already bound.
	ErrNameTaken = types.ErrNameTaken

	// ErrRegistryClosed is returned for operations on a closed registry.
	ErrRegistryClosed = types.ErrRegistryClosed

	// ErrNATSConnectionRequired is returned when the NATS registry is
	// requested without a connection.
	ErrNATSConnectionRequired = types.ErrNATSConnectionRequired
)
