// Package streamid generates and validates stream identifiers.
//
// A stream ID is an opaque token of exactly 20 characters drawn from
// [a-zA-Z0-9]. Validity is purely syntactic and implies nothing about
// whether the owning session still exists.
package streamid

import (
	"crypto/rand"
	"fmt"
)

// Length is the fixed stream ID length.
const Length = 20

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// New generates a fresh random stream ID.
//
// Returns:
//   - string: 20-character token from the [a-zA-Z0-9] alphabet
//   - error: Only when the platform random source fails
func New() (string, error) {
	id := make([]byte, Length)
	buf := make([]byte, Length)

	filled := 0
	for filled < Length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}

		for _, b := range buf {
			// Rejection sampling keeps the distribution uniform: 62*4=248,
			// so bytes 248..255 are discarded instead of biasing a-h.
			if b >= byte(len(alphabet))*4 {
				continue
			}

			id[filled] = alphabet[int(b)%len(alphabet)]
			filled++
			if filled == Length {
				break
			}
		}
	}

	return string(id), nil
}

// Valid reports whether id is syntactically well-formed.
//
// Parameters:
//   - id: Candidate stream ID
//
// Returns:
//   - bool: true if id has length 20 and contains only [a-zA-Z0-9]
func Valid(id string) bool {
	if len(id) != Length {
		return false
	}

	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		default:
			return false
		}
	}

	return true
}
