// Package codec implements the wire encoding for the three message kinds
// that cross process boundaries.
//
// A notify message serializes its event list as a JSON array of strings. The
// two marker kinds serialize as fixed literal tags beginning with '+'. A JSON
// array always begins with '[', so a marker literal can never result from
// serializing any event list, empty or not; the two encodings cannot collide.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/arloliu/longpoll/types"
)

// Marker literals for the zero-payload message kinds.
const (
	pollTag   = "+poll"
	commitTag = "+commit"
)

// Encode serializes msg for cross-process transit.
//
// Parameters:
//   - msg: Message to encode
//
// Returns:
//   - []byte: Encoded frame
//   - error: types.ErrUnsupportedMessage for kinds outside the closed set
func Encode(msg types.Message) ([]byte, error) {
	switch msg.Kind {
	case types.KindNotify:
		ids := msg.EventIDs
		if ids == nil {
			ids = []string{}
		}
		data, err := json.Marshal(ids)
		if err != nil {
			return nil, fmt.Errorf("failed to encode notify payload: %w", err)
		}

		return data, nil
	case types.KindPoll:
		return []byte(pollTag), nil
	case types.KindCommit:
		return []byte(commitTag), nil
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedMessage, msg.Kind)
	}
}

// Decode parses a wire frame back into a message.
//
// Dispatch is by exact literal match for the two markers; anything else is
// parsed as a notify payload. Input that is neither fails with
// types.ErrMalformedMessage, never silently coerced.
//
// Parameters:
//   - data: Raw frame bytes
//
// Returns:
//   - types.Message: Decoded message
//   - error: types.ErrMalformedMessage on undecodable input
func Decode(data []byte) (types.Message, error) {
	switch {
	case bytes.Equal(data, []byte(pollTag)):
		return types.NewPoll(), nil
	case bytes.Equal(data, []byte(commitTag)):
		return types.NewCommit(), nil
	}

	// Reject non-list JSON values (e.g. "null", bare strings) up front:
	// Unmarshal would accept "null" into a nil slice without error.
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return types.Message{}, fmt.Errorf("%w: %s", types.ErrMalformedMessage, truncate(data))
	}

	var ids []string
	if err := json.Unmarshal(trimmed, &ids); err != nil {
		return types.Message{}, fmt.Errorf("%w: %s", types.ErrMalformedMessage, truncate(data))
	}

	return types.NewNotify(ids), nil
}

// truncate bounds undecodable payloads quoted in error messages.
func truncate(data []byte) string {
	const limit = 64
	if len(data) > limit {
		return string(data[:limit]) + "..."
	}

	return string(data)
}
