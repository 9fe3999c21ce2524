// Package longpoll provides server-side event coalescing for long-polling
// notification streams.
//
// Clients repeatedly ask "what happened since my last check?"; longpoll
// batches, filters and times out the answer so that polling is cheap for
// the server and low-latency for the client. Each stream is owned by a
// single coalescing session that interleaves three timers - a quiet-period
// grace deadline, an absolute delivery ceiling and an idle keep-alive - and
// a cluster-wide registry lets any node locate the session owning a given
// stream ID.
//
// # Quick Start
//
// Single-node usage with the built-in in-process registry:
//
//	cfg := longpoll.DefaultConfig()
//	coord, err := longpoll.NewCoordinator(&cfg, filter)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := coord.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer coord.Stop(context.Background())
//
//	streamID, _ := coord.CreateStream(ctx, accessContext)
//
//	// Producers, anywhere in the process:
//	coord.Notify(ctx, []string{"event-1", "event-2"})
//
//	// The polling handler:
//	batch, err := coord.Poll(ctx, streamID)
//
// # Multi-Node Deployments
//
// Hand the coordinator a NATS connection and any node can answer a poll for
// a stream created elsewhere:
//
//	nc, err := nats.Connect(nats.DefaultURL)
//	coord, err := longpoll.NewCoordinator(&cfg, filter, longpoll.WithNATSConn(nc))
//
// Poll requests travel over per-stream request/reply subjects and
// notifications fan out through a JetStream stream, giving at-least-once
// delivery to every node hosting sessions.
//
// # Delivery Semantics
//
// A poll is answered with an empty batch after RefreshInterval when nothing
// arrives; with the buffered batch GracePeriod after the last event once
// events flow; and never later than MaxWait after the first event. A new
// poll on the same stream supersedes the previous waiter. Sessions that see
// no poll for KeepAliveTTL terminate, and later polls for their ID fail
// with ErrStreamNotFound.
//
// Visibility is enforced per stream: every broadcast is passed through the
// caller-supplied VisibilityFilter with the stream's fixed access context
// before anything is buffered.
package longpoll
