package registry

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/longpoll/internal/codec"
	"github.com/arloliu/longpoll/internal/logging"
	"github.com/arloliu/longpoll/internal/metrics"
	"github.com/arloliu/longpoll/internal/natsutil"
	"github.com/arloliu/longpoll/types"
)

// NATS implements types.Registry on top of a NATS deployment.
//
// Name resolution and poll requests use core NATS request/reply on a
// per-stream subject ("<prefix>.stream.<id>"): a subject with no subscriber
// answers with no-responders, which is how absence of a binding is
// discovered lazily. Broadcast uses a JetStream stream
// ("<prefix>-notify") with one ephemeral consumer per registry instance,
// giving at-least-once delivery to every node that currently hosts
// sessions; core pub/sub alone would be at-most-once.
//
// Liveness probing during Resolve uses an empty-payload request answered
// below the codec. An empty payload is not a valid codec frame, so probes
// can never be confused with application messages.
type NATS struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	prefix  string
	logger  types.Logger
	metrics types.MetricsCollector

	inboxes    *xsync.Map[string, types.Inbox]
	consumeCtx jetstream.ConsumeContext
	closed     atomic.Bool
}

// Compile-time assertion that NATS implements Registry.
var _ types.Registry = (*NATS)(nil)

// NATSConfig configures the NATS registry backend.
type NATSConfig struct {
	// SubjectPrefix namespaces all subjects and the broadcast stream.
	// Defaults to "longpoll". Must be a plain token (no dots or wildcards).
	SubjectPrefix string

	// ConsumerInactiveThreshold is how long the server keeps this node's
	// ephemeral broadcast consumer after the node vanishes. Defaults to 1m.
	ConsumerInactiveThreshold time.Duration
}

// NewNATS creates a NATS-backed registry and starts its broadcast consumer.
//
// The broadcast stream is created if absent and shared by every registry
// instance using the same prefix. It uses interest retention and memory
// storage: notifications are delivered to nodes that are subscribed when
// they arrive and are never persisted beyond that, matching the
// at-least-once, no-replay delivery contract.
//
// Parameters:
//   - ctx: Context for stream and consumer setup
//   - nc: Established NATS connection (not closed by the registry)
//   - cfg: Backend configuration
//   - logger: Logger (nop if nil)
//   - collector: Metrics collector (nop if nil)
//
// Returns:
//   - *NATS: Running registry instance
//   - error: types.ErrNATSConnectionRequired or a JetStream setup error
func NewNATS(ctx context.Context, nc *nats.Conn, cfg NATSConfig, logger types.Logger, collector types.MetricsCollector) (*NATS, error) {
	if nc == nil {
		return nil, types.ErrNATSConnectionRequired
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if collector == nil {
		collector = metrics.NewNop()
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "longpoll"
	}
	if cfg.ConsumerInactiveThreshold == 0 {
		cfg.ConsumerInactiveThreshold = time.Minute
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	r := &NATS{
		nc:      nc,
		js:      js,
		prefix:  cfg.SubjectPrefix,
		logger:  logger,
		metrics: collector,
		inboxes: xsync.NewMap[string, types.Inbox](),
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.SubjectPrefix + "-notify",
		Subjects:  []string{r.broadcastSubject()},
		Retention: jetstream.InterestPolicy,
		Storage:   jetstream.MemoryStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create broadcast stream: %w", err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		AckPolicy:         jetstream.AckExplicitPolicy,
		DeliverPolicy:     jetstream.DeliverNewPolicy,
		InactiveThreshold: cfg.ConsumerInactiveThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create broadcast consumer: %w", err)
	}

	consumeCtx, err := consumer.Consume(r.handleBroadcast)
	if err != nil {
		return nil, fmt.Errorf("failed to start broadcast consumer: %w", err)
	}
	r.consumeCtx = consumeCtx

	return r, nil
}

// Register subscribes a per-stream subject and joins the broadcast group.
//
// Parameters:
//   - name: Logical name (the stream ID)
//   - inbox: Recipient for requests and broadcasts
//
// Returns:
//   - types.Binding: Handle that unsubscribes on Close
//   - error: types.ErrNameTaken, types.ErrRegistryClosed, or a transport error
func (r *NATS) Register(name string, inbox types.Inbox) (types.Binding, error) {
	if r.closed.Load() {
		return nil, types.ErrRegistryClosed
	}

	if _, loaded := r.inboxes.LoadOrStore(name, inbox); loaded {
		return nil, fmt.Errorf("%w: %s", types.ErrNameTaken, name)
	}

	sub, err := r.nc.Subscribe(r.streamSubject(name), func(m *nats.Msg) {
		r.handleRequest(inbox, m)
	})
	if err != nil {
		r.inboxes.Delete(name)
		return nil, fmt.Errorf("failed to subscribe %s: %w", name, err)
	}

	r.logger.Debug("registered NATS binding", "name", name, "subject", r.streamSubject(name))

	return &natsBinding{registry: r, name: name, sub: sub}, nil
}

// Resolve probes the per-stream subject with an empty-payload request.
//
// Parameters:
//   - ctx: Context for cancellation
//   - name: Logical name to resolve
//   - timeout: Upper bound on the probe
//
// Returns:
//   - types.Handle: Handle for the live session
//   - error: types.ErrStreamNotFound if nothing answered within the bound
func (r *NATS) Resolve(ctx context.Context, name string, timeout time.Duration) (types.Handle, error) {
	if r.closed.Load() {
		return nil, types.ErrRegistryClosed
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := r.nc.RequestWithContext(probeCtx, r.streamSubject(name), nil); err != nil {
		if natsutil.IsUnreachable(err) {
			return nil, types.ErrStreamNotFound
		}

		return nil, fmt.Errorf("resolve %s failed: %w", name, err)
	}

	return &natsHandle{nc: r.nc, subject: r.streamSubject(name)}, nil
}

// Broadcast publishes msg to the shared JetStream stream.
//
// The publish is acknowledged by the stream before returning, which is what
// makes delivery to subscribed consumers at-least-once.
func (r *NATS) Broadcast(ctx context.Context, msg types.Message) error {
	if r.closed.Load() {
		return types.ErrRegistryClosed
	}

	data, err := codec.Encode(msg)
	if err != nil {
		return err
	}

	if _, err := r.js.Publish(ctx, r.broadcastSubject(), data); err != nil {
		return fmt.Errorf("broadcast publish failed: %w", err)
	}

	return nil
}

// Close stops the broadcast consumer and drops local bindings. The NATS
// connection itself stays open; the caller owns it.
func (r *NATS) Close() error {
	if r.closed.Swap(true) {
		return nil
	}

	r.consumeCtx.Stop()
	r.inboxes.Clear()

	return nil
}

// handleRequest dispatches one inbound message on a per-stream subject.
func (r *NATS) handleRequest(inbox types.Inbox, m *nats.Msg) {
	// Empty payload is a resolve probe: ack liveness without involving the
	// session at all.
	if len(m.Data) == 0 {
		if m.Reply != "" {
			_ = m.Respond(nil)
		}

		return
	}

	msg, err := codec.Decode(m.Data)
	if err != nil {
		r.logger.Warn("dropping undecodable request", "subject", m.Subject, "error", err)
		r.metrics.RecordDecodeDropped()

		return
	}

	var reply types.ReplyFunc
	if m.Reply != "" {
		reply = func(resp types.Message) error {
			data, err := codec.Encode(resp)
			if err != nil {
				return err
			}

			return m.Respond(data)
		}
	}

	inbox.Deliver(msg, reply)
}

// handleBroadcast fans one JetStream delivery out to all local inboxes.
func (r *NATS) handleBroadcast(m jetstream.Msg) {
	msg, err := codec.Decode(m.Data())
	if err != nil {
		r.logger.Warn("dropping undecodable broadcast", "error", err)
		r.metrics.RecordDecodeDropped()
		_ = m.Ack()

		return
	}

	r.inboxes.Range(func(_ string, inbox types.Inbox) bool {
		inbox.Deliver(msg, nil)
		return true
	})

	// Ack after fan-out: a crash mid-delivery redelivers to this node's
	// successor consumer rather than losing the batch.
	_ = m.Ack()
}

func (r *NATS) streamSubject(name string) string {
	return r.prefix + ".stream." + name
}

func (r *NATS) broadcastSubject() string {
	return r.prefix + ".notify"
}

// natsBinding withdraws one per-stream subscription on Close.
type natsBinding struct {
	registry *NATS
	name     string
	sub      *nats.Subscription
}

func (b *natsBinding) Close() error {
	b.registry.inboxes.Delete(b.name)
	if err := b.sub.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe %s: %w", b.name, err)
	}

	return nil
}

// natsHandle issues request/reply calls against a resolved subject.
type natsHandle struct {
	nc      *nats.Conn
	subject string
}

// Request encodes msg, sends it to the bound subject and decodes the reply.
func (h *natsHandle) Request(ctx context.Context, msg types.Message, timeout time.Duration) (types.Message, error) {
	data, err := codec.Encode(msg)
	if err != nil {
		return types.Message{}, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := h.nc.RequestWithContext(reqCtx, h.subject, data)
	if err != nil {
		if natsutil.IsUnreachable(err) {
			return types.Message{}, types.ErrStreamNotFound
		}

		return types.Message{}, fmt.Errorf("request on %s failed: %w", h.subject, err)
	}

	decoded, err := codec.Decode(resp.Data)
	if err != nil {
		return types.Message{}, err
	}

	return decoded, nil
}
