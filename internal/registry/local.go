// Package registry provides Registry backends: an in-process map for
// single-node deployments and tests, and a NATS-backed layer for multi-node
// deployments.
package registry

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/longpoll/internal/logging"
	"github.com/arloliu/longpoll/types"
)

// Local implements types.Registry with an in-process binding map.
//
// Resolution is a map lookup and broadcast is a synchronous fan-out over all
// registered inboxes. Location transparency degenerates to a single node,
// which is exactly what tests and single-process deployments need.
type Local struct {
	bindings *xsync.Map[string, types.Inbox]
	logger   types.Logger
	closed   atomic.Bool
}

// Compile-time assertion that Local implements Registry.
var _ types.Registry = (*Local)(nil)

// NewLocal creates a new in-process registry.
//
// Parameters:
//   - logger: Logger for delivery diagnostics (nop logger if nil)
//
// Returns:
//   - *Local: New registry instance
func NewLocal(logger types.Logger) *Local {
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Local{
		bindings: xsync.NewMap[string, types.Inbox](),
		logger:   logger,
	}
}

// Register binds name to inbox.
//
// Parameters:
//   - name: Logical name (the stream ID)
//   - inbox: Recipient for requests and broadcasts
//
// Returns:
//   - types.Binding: Handle that withdraws the binding on Close
//   - error: types.ErrNameTaken or types.ErrRegistryClosed
func (r *Local) Register(name string, inbox types.Inbox) (types.Binding, error) {
	if r.closed.Load() {
		return nil, types.ErrRegistryClosed
	}

	if _, loaded := r.bindings.LoadOrStore(name, inbox); loaded {
		return nil, fmt.Errorf("%w: %s", types.ErrNameTaken, name)
	}

	r.logger.Debug("registered local binding", "name", name)

	return &localBinding{registry: r, name: name}, nil
}

// Resolve looks name up in the binding map.
//
// The timeout parameter is part of the Registry contract but unused here: a
// map lookup either hits or misses immediately.
//
// Parameters:
//   - ctx: Unused for the in-process backend
//   - name: Logical name to resolve
//   - timeout: Unused for the in-process backend
//
// Returns:
//   - types.Handle: Handle for the live binding
//   - error: types.ErrStreamNotFound if no binding exists
func (r *Local) Resolve(_ context.Context, name string, _ time.Duration) (types.Handle, error) {
	if r.closed.Load() {
		return nil, types.ErrRegistryClosed
	}

	inbox, ok := r.bindings.Load(name)
	if !ok {
		return nil, types.ErrStreamNotFound
	}

	return &localHandle{inbox: inbox}, nil
}

// Broadcast delivers msg to every registered inbox.
//
// Delivery order across inboxes is unspecified. A binding withdrawn
// concurrently may or may not receive the message.
func (r *Local) Broadcast(_ context.Context, msg types.Message) error {
	if r.closed.Load() {
		return types.ErrRegistryClosed
	}

	r.bindings.Range(func(_ string, inbox types.Inbox) bool {
		inbox.Deliver(msg, nil)
		return true
	})

	return nil
}

// Close drops all bindings and rejects further operations.
func (r *Local) Close() error {
	if r.closed.Swap(true) {
		return nil
	}

	r.bindings.Clear()

	return nil
}

// localBinding withdraws a single name on Close.
type localBinding struct {
	registry *Local
	name     string
}

func (b *localBinding) Close() error {
	b.registry.bindings.Delete(b.name)
	b.registry.logger.Debug("withdrew local binding", "name", b.name)

	return nil
}

// localHandle sends request messages straight into the bound inbox.
type localHandle struct {
	inbox types.Inbox
}

// Request delivers msg with a single-use reply channel and waits for the
// session to answer or the bound to elapse.
func (h *localHandle) Request(ctx context.Context, msg types.Message, timeout time.Duration) (types.Message, error) {
	replyCh := make(chan types.Message, 1)
	h.inbox.Deliver(msg, func(resp types.Message) error {
		select {
		case replyCh <- resp:
			return nil
		default:
			// A reply was already delivered; a second one is a stale timer
			// race and is dropped.
			return nil
		}
	})

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-replyCh:
		return resp, nil
	case <-timer.C:
		return types.Message{}, types.ErrStreamNotFound
	case <-ctx.Done():
		return types.Message{}, fmt.Errorf("request canceled: %w", ctx.Err())
	}
}
