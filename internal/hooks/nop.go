// Package hooks provides default no-op lifecycle hooks.
package hooks

import (
	"context"

	"github.com/arloliu/longpoll/types"
)

// NewNop creates a Hooks value with no-op callbacks for every event.
//
// This is the default used when no custom hooks are provided, eliminating
// nil checks at every call site.
//
// Returns:
//   - types.Hooks: Hooks with no-op implementations
func NewNop() types.Hooks {
	return types.Hooks{
		OnStreamCreated: func(_ context.Context, _ string) error {
			return nil
		},
		OnBatchDelivered: func(_ context.Context, _ string, _ []string) error {
			return nil
		},
		OnSessionExpired: func(_ context.Context, _ string) error {
			return nil
		},
	}
}

// FillNop replaces nil callbacks in h with no-ops so callers can invoke
// every hook unconditionally.
//
// Parameters:
//   - h: Hooks to normalize (modified in place)
func FillNop(h *types.Hooks) {
	nop := NewNop()
	if h.OnStreamCreated == nil {
		h.OnStreamCreated = nop.OnStreamCreated
	}
	if h.OnBatchDelivered == nil {
		h.OnBatchDelivered = nop.OnBatchDelivered
	}
	if h.OnSessionExpired == nil {
		h.OnSessionExpired = nop.OnSessionExpired
	}
}
