package longpoll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/longpoll/internal/hooks"
	"github.com/arloliu/longpoll/internal/logging"
	"github.com/arloliu/longpoll/internal/metrics"
	"github.com/arloliu/longpoll/internal/registry"
	"github.com/arloliu/longpoll/internal/streamid"
	"github.com/arloliu/longpoll/types"
)

// Coordinator creates event streams and orchestrates client polls.
//
// It is the client-facing surface of the library: CreateStream mints a
// stream ID and spawns its coalescing session; Poll resolves the ID to the
// live session anywhere in the deployment and waits for the next batch;
// Notify broadcasts raw event IDs to every session.
//
// A Coordinator is safe for concurrent use. Polls for different stream IDs
// proceed fully in parallel; repeated polls for the same ID supersede each
// other inside the session.
type Coordinator struct {
	cfg     Config
	filter  types.VisibilityFilter
	reg     types.Registry
	ownsReg bool
	logger  types.Logger
	metrics types.MetricsCollector
	hooks   types.Hooks

	sessions *xsync.Map[string, *session]

	mu        sync.Mutex
	started   bool
	lifecycle context.Context
	cancel    context.CancelFunc
}

// NewCoordinator creates a Coordinator.
//
// The configuration is defaulted and validated in place. The registry is
// chosen by option: WithRegistry wins, then WithNATSConn, and with neither
// an in-process registry is created. Registries the coordinator creates are
// owned and closed by it.
//
// Parameters:
//   - cfg: Configuration (missing values are defaulted; modified in place)
//   - filter: Visibility filter consulted on every notification
//   - opts: Optional dependencies (registry, logger, metrics, hooks)
//
// Returns:
//   - *Coordinator: New coordinator instance
//   - error: ErrFilterRequired, ErrInvalidConfig, or a registry setup error
//
// Example:
//
//	cfg := longpoll.DefaultConfig()
//	coord, err := longpoll.NewCoordinator(&cfg, filter,
//	    longpoll.WithLogger(logger),
//	    longpoll.WithNATSConn(nc),
//	)
func NewCoordinator(cfg *Config, filter types.VisibilityFilter, opts ...Option) (*Coordinator, error) {
	if filter == nil {
		return nil, types.ErrFilterRequired
	}

	SetDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidConfig, err)
	}

	options := coordinatorOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	if options.logger == nil {
		options.logger = logging.NewNop()
	}
	if options.metrics == nil {
		options.metrics = metrics.NewNop()
	}

	var h types.Hooks
	if options.hooks != nil {
		h = *options.hooks
	}
	hooks.FillNop(&h)

	c := &Coordinator{
		cfg:      *cfg,
		filter:   filter,
		reg:      options.registry,
		logger:   options.logger,
		metrics:  options.metrics,
		hooks:    h,
		sessions: xsync.NewMap[string, *session](),
	}

	if c.reg == nil && options.natsConn != nil {
		reg, err := registry.NewNATS(context.Background(), options.natsConn, registry.NATSConfig{
			SubjectPrefix: cfg.SubjectPrefix,
		}, c.logger, c.metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create NATS registry: %w", err)
		}

		c.reg = reg
		c.ownsReg = true
	}

	if c.reg == nil {
		c.reg = registry.NewLocal(c.logger)
		c.ownsReg = true
	}

	return c, nil
}

// Start activates the coordinator.
//
// Returns:
//   - error: ErrAlreadyStarted if already running
func (c *Coordinator) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return types.ErrAlreadyStarted
	}

	c.lifecycle, c.cancel = context.WithCancel(context.Background())
	c.started = true

	c.logger.Info("coordinator started",
		"grace", c.cfg.GracePeriod,
		"refresh", c.cfg.RefreshInterval,
		"maxWait", c.cfg.MaxWait,
		"keepAlive", c.cfg.KeepAliveTTL,
	)

	return nil
}

// Stop terminates every local session and releases resources.
//
// Sessions are asked to shut down and waited for up to the context
// deadline. The registry is closed only if the coordinator created it.
//
// Parameters:
//   - ctx: Bounds the wait for session teardown
//
// Returns:
//   - error: ErrNotStarted, or ctx.Err() if teardown did not finish in time
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return types.ErrNotStarted
	}
	c.started = false
	c.mu.Unlock()

	var live []*session
	c.sessions.Range(func(_ string, s *session) bool {
		live = append(live, s)
		return true
	})

	for _, s := range live {
		s.shutdown()
	}
	for _, s := range live {
		select {
		case <-s.terminated():
		case <-ctx.Done():
			c.cancel()
			return fmt.Errorf("session teardown incomplete: %w", ctx.Err())
		}
	}

	c.cancel()

	if c.ownsReg {
		if err := c.reg.Close(); err != nil {
			return fmt.Errorf("failed to close registry: %w", err)
		}
	}

	c.logger.Info("coordinator stopped", "sessionsClosed", len(live))

	return nil
}

// CreateStream mints a stream ID, spawns its session and registers it.
//
// The access context is fixed for the session's lifetime: every visibility
// decision for this stream uses it. The returned ID is syntactically valid
// and resolvable for at least KeepAliveTTL even if never polled.
//
// Parameters:
//   - ctx: Unused today; reserved for registry backends that block on registration
//   - access: Opaque authorization context handed to the visibility filter
//
// Returns:
//   - string: The new stream ID
//   - error: ErrNotStarted, or a resource exhaustion/transport error
func (c *Coordinator) CreateStream(_ context.Context, access types.AccessContext) (string, error) {
	if !c.isStarted() {
		return "", types.ErrNotStarted
	}

	id, err := streamid.New()
	if err != nil {
		return "", fmt.Errorf("failed to generate stream ID: %w", err)
	}

	s := newSession(id, access, c.cfg, c.filter, c.logger, c.metrics, c.hooks, c.lifecycle, c.removeSession)

	binding, err := c.reg.Register(id, s)
	if err != nil {
		return "", fmt.Errorf("failed to register stream %s: %w", id, err)
	}
	s.binding = binding

	c.sessions.Store(id, s)
	go s.run()

	c.metrics.RecordSessionCreated()
	c.metrics.SetActiveSessions(c.sessions.Size())
	c.logger.Info("stream created", "stream", id)

	go func() {
		if err := c.hooks.OnStreamCreated(c.lifecycle, id); err != nil {
			c.logger.Warn("OnStreamCreated hook failed", "stream", id, "error", err)
		}
	}()

	return id, nil
}

// Poll asks the session owning streamID for its next batch.
//
// The ID is validated syntactically first (InvalidStreamID, never retried),
// then resolved cluster-wide and asked to deliver. Both resolution failure
// and a request timeout surface as StreamNotFound: "never existed",
// "expired via keep-alive" and "transiently unreachable" are deliberately
// indistinguishable, and callers recover by creating a new stream.
//
// An empty batch is a normal result: it means no visible events arrived
// before the refresh ceiling.
//
// Parameters:
//   - ctx: Context for cancellation
//   - streamID: Stream ID returned by CreateStream
//
// Returns:
//   - []string: Delivered batch, in arrival order, possibly empty
//   - error: ErrNotStarted, ErrInvalidStreamID or ErrStreamNotFound
func (c *Coordinator) Poll(ctx context.Context, streamID string) ([]string, error) {
	if !c.isStarted() {
		return nil, types.ErrNotStarted
	}

	start := time.Now()

	if !streamid.Valid(streamID) {
		c.metrics.RecordPoll(types.PollOutcomeInvalidID)
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidStreamID, streamID)
	}

	handle, err := c.reg.Resolve(ctx, streamID, c.cfg.ResolveTimeout)
	if err != nil {
		if errors.Is(err, types.ErrStreamNotFound) {
			c.metrics.RecordPoll(types.PollOutcomeNotFound)
			c.logger.Debug("poll for unknown stream", "stream", streamID)

			return nil, types.ErrStreamNotFound
		}

		return nil, fmt.Errorf("resolve failed for %s: %w", streamID, err)
	}

	resp, err := handle.Request(ctx, types.NewPoll(), c.cfg.PollTimeout)
	if err != nil {
		if errors.Is(err, types.ErrStreamNotFound) {
			c.metrics.RecordPoll(types.PollOutcomeNotFound)
			c.logger.Debug("poll request timed out", "stream", streamID)

			return nil, types.ErrStreamNotFound
		}

		return nil, fmt.Errorf("poll request failed for %s: %w", streamID, err)
	}

	if resp.Kind != types.KindNotify {
		return nil, fmt.Errorf("%w: poll reply of kind %s", types.ErrMalformedMessage, resp.Kind)
	}

	batch := resp.EventIDs
	if batch == nil {
		batch = []string{}
	}

	c.metrics.RecordPoll(types.PollOutcomeDelivered)
	c.metrics.ObservePollLatency(time.Since(start).Seconds())

	return batch, nil
}

// Notify broadcasts raw event identifiers to every session in the
// deployment. Each session filters them against its own access context
// before buffering.
//
// Parameters:
//   - ctx: Context for cancellation of the broadcast publish
//   - ids: Raw event identifiers, order preserved
//
// Returns:
//   - error: ErrNotStarted or a transport error
func (c *Coordinator) Notify(ctx context.Context, ids []string) error {
	if !c.isStarted() {
		return types.ErrNotStarted
	}

	if err := c.reg.Broadcast(ctx, types.NewNotify(ids)); err != nil {
		return fmt.Errorf("broadcast failed: %w", err)
	}

	return nil
}

// ActiveSessions returns the number of live sessions hosted by this
// coordinator instance.
//
// Returns:
//   - int: Current local session count
func (c *Coordinator) ActiveSessions() int {
	return c.sessions.Size()
}

// removeSession is the session termination callback.
func (c *Coordinator) removeSession(s *session, _ bool) {
	c.sessions.Delete(s.id)
	c.metrics.SetActiveSessions(c.sessions.Size())
}

func (c *Coordinator) isStarted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.started
}
