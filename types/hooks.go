package types

import "context"

// Hooks defines callbacks for coordinator lifecycle events.
//
// All hooks are optional and called asynchronously in background goroutines
// to avoid blocking session state machines. The context passed to hooks is
// the coordinator's lifecycle context and is cancelled during shutdown.
//
// Best practices for hook implementation:
//   - Complete quickly (< 1 second recommended)
//   - Respect context cancellation
//   - Handle errors gracefully (returned errors are logged, never fatal)
type Hooks struct {
	// OnStreamCreated is called after a stream has been created and its
	// session registered.
	OnStreamCreated func(ctx context.Context, streamID string) error

	// OnBatchDelivered is called after a session delivered a batch to a
	// poll waiter. The batch may be empty.
	OnBatchDelivered func(ctx context.Context, streamID string, batch []string) error

	// OnSessionExpired is called after a session terminated because its
	// keep-alive timer fired.
	OnSessionExpired func(ctx context.Context, streamID string) error
}
