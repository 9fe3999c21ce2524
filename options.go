package longpoll

import (
	"github.com/nats-io/nats.go"

	"github.com/arloliu/longpoll/types"
)

// Option configures a Coordinator with optional dependencies.
type Option func(*coordinatorOptions)

// coordinatorOptions holds optional Coordinator configuration.
type coordinatorOptions struct {
	registry types.Registry
	natsConn *nats.Conn
	logger   types.Logger
	metrics  types.MetricsCollector
	hooks    *types.Hooks
}

// WithRegistry sets a custom registry backend.
//
// When neither this nor WithNATSConn is given, the Coordinator creates an
// in-process registry, which is appropriate for single-node deployments and
// tests. WithRegistry takes precedence over WithNATSConn. The coordinator
// does not close a registry supplied this way.
//
// Parameters:
//   - registry: Registry implementation
//
// Returns:
//   - Option: Functional option for NewCoordinator
func WithRegistry(registry types.Registry) Option {
	return func(o *coordinatorOptions) {
		o.registry = registry
	}
}

// WithNATSConn makes the Coordinator build a NATS-backed registry on the
// given connection, namespaced by Config.SubjectPrefix. This is how
// multi-node deployments are wired: every node using the same NATS cluster
// and prefix can answer polls for streams created on any other node.
//
// The registry is owned (and closed) by the Coordinator; the connection
// itself stays open and is the caller's to close.
//
// Parameters:
//   - nc: Established NATS connection
//
// Returns:
//   - Option: Functional option for NewCoordinator
//
// Example:
//
//	nc, _ := nats.Connect(nats.DefaultURL)
//	coord, _ := longpoll.NewCoordinator(&cfg, filter, longpoll.WithNATSConn(nc))
func WithNATSConn(nc *nats.Conn) Option {
	return func(o *coordinatorOptions) {
		o.natsConn = nc
	}
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with zap.SugaredLogger)
//
// Returns:
//   - Option: Functional option for NewCoordinator
func WithLogger(logger types.Logger) Option {
	return func(o *coordinatorOptions) {
		o.logger = logger
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewCoordinator
func WithMetrics(metrics types.MetricsCollector) Option {
	return func(o *coordinatorOptions) {
		o.metrics = metrics
	}
}

// WithHooks sets lifecycle event hooks.
//
// Parameters:
//   - hooks: Hooks structure with callback functions (nil members are no-ops)
//
// Returns:
//   - Option: Functional option for NewCoordinator
//
// Example:
//
//	hooks := &longpoll.Hooks{
//	    OnBatchDelivered: func(ctx context.Context, streamID string, batch []string) error {
//	        return audit.Record(ctx, streamID, batch)
//	    },
//	}
//	coord, _ := longpoll.NewCoordinator(&cfg, filter, longpoll.WithHooks(hooks))
func WithHooks(hooks *types.Hooks) Option {
	return func(o *coordinatorOptions) {
		o.hooks = hooks
	}
}
