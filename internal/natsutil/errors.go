// Package natsutil provides small helpers for classifying NATS errors.
package natsutil

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"
)

// IsUnreachable reports whether err indicates that no live responder
// answered a request within its bound.
//
// Both "nobody is subscribed" (no-responders) and "somebody may be
// subscribed but never replied" (timeout) fall in this class; the lookup
// contract treats them indistinguishably.
//
// Parameters:
//   - err: The error to classify
//
// Returns:
//   - bool: true if the target should be treated as not found
func IsUnreachable(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, nats.ErrNoResponders) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}
