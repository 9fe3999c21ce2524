// Package testing provides test utilities for the longpoll library.
//
// This package offers helpers for setting up test environments, in
// particular an embedded NATS server for exercising the distributed
// registry backend. It follows Go's convention of providing testing
// utilities in a dedicated package (similar to net/http/httptest).
//
// Key utilities:
//   - StartEmbeddedNATS: Single in-process NATS server with JetStream
//   - NewTestLogger: Logger that writes through testing.T
//
// Example usage:
//
//	import (
//	    "testing"
//	    lptest "github.com/arloliu/longpoll/testing"
//	)
//
//	func TestMyComponent(t *testing.T) {
//	    _, nc := lptest.StartEmbeddedNATS(t)
//	    // Use nc for your tests
//	}
package testing
