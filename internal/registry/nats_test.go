package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	lptest "github.com/arloliu/longpoll/testing"
	"github.com/arloliu/longpoll/types"
)

func newTestNATS(t *testing.T, prefix string) (*NATS, *NATS) {
	t.Helper()

	ns, ncA := lptest.StartEmbeddedNATS(t)
	ncB := lptest.ConnectEmbeddedNATS(t, ns)

	ctx := context.Background()
	cfg := NATSConfig{SubjectPrefix: prefix}

	regA, err := NewNATS(ctx, ncA, cfg, lptest.NewTestLogger(t), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = regA.Close() })

	regB, err := NewNATS(ctx, ncB, cfg, lptest.NewTestLogger(t), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = regB.Close() })

	return regA, regB
}

func TestNATS_RequiresConnection(t *testing.T) {
	_, err := NewNATS(context.Background(), nil, NATSConfig{}, nil, nil)
	require.ErrorIs(t, err, types.ErrNATSConnectionRequired)
}

func TestNATS_RegisterResolveRequest(t *testing.T) {
	regA, regB := newTestNATS(t, "rrr")

	inbox := newEchoInbox()
	binding, err := regA.Register("stream-1", inbox)
	require.NoError(t, err)
	require.NotNil(t, binding)

	// Resolve and request from the other node: the registration is visible
	// cluster-wide, not just on the registering instance.
	handle, err := regB.Resolve(context.Background(), "stream-1", 2*time.Second)
	require.NoError(t, err)

	resp, err := handle.Request(context.Background(), types.NewNotify([]string{"e1", "e2"}), 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, types.KindNotify, resp.Kind)
	require.Equal(t, []string{"e1", "e2"}, resp.EventIDs)
}

func TestNATS_ResolveUnknown(t *testing.T) {
	_, regB := newTestNATS(t, "unknown")

	// No subscriber on the subject: no-responders comes back immediately,
	// well within the timeout.
	start := time.Now()
	_, err := regB.Resolve(context.Background(), "missing", 2*time.Second)
	require.ErrorIs(t, err, types.ErrStreamNotFound)
	require.Less(t, time.Since(start), time.Second)
}

func TestNATS_DuplicateNameRejected(t *testing.T) {
	regA, _ := newTestNATS(t, "dup")

	_, err := regA.Register("stream-1", newEchoInbox())
	require.NoError(t, err)

	_, err = regA.Register("stream-1", newEchoInbox())
	require.ErrorIs(t, err, types.ErrNameTaken)
}

func TestNATS_BindingCloseWithdraws(t *testing.T) {
	regA, regB := newTestNATS(t, "withdraw")

	binding, err := regA.Register("stream-1", newEchoInbox())
	require.NoError(t, err)

	_, err = regB.Resolve(context.Background(), "stream-1", 2*time.Second)
	require.NoError(t, err)

	require.NoError(t, binding.Close())

	// The unsubscribe propagates to the server; after that the probe gets
	// no-responders from anywhere in the cluster.
	require.Eventually(t, func() bool {
		_, err := regB.Resolve(context.Background(), "stream-1", 500*time.Millisecond)
		return err != nil
	}, 3*time.Second, 50*time.Millisecond)
}

func TestNATS_BroadcastReachesAllNodes(t *testing.T) {
	regA, regB := newTestNATS(t, "bcast")

	inboxA := newEchoInbox()
	inboxB := newEchoInbox()

	_, err := regA.Register("stream-a", inboxA)
	require.NoError(t, err)
	_, err = regB.Register("stream-b", inboxB)
	require.NoError(t, err)

	// Published once, delivered to the inboxes on both registry instances
	// through their independent broadcast consumers.
	require.NoError(t, regA.Broadcast(context.Background(), types.NewNotify([]string{"e1"})))

	for name, inbox := range map[string]*echoInbox{"a": inboxA, "b": inboxB} {
		select {
		case msg := <-inbox.broadcasts:
			require.Equal(t, types.KindNotify, msg.Kind)
			require.Equal(t, []string{"e1"}, msg.EventIDs)
		case <-time.After(3 * time.Second):
			t.Fatalf("broadcast did not reach node %s", name)
		}
	}
}

func TestNATS_ClosedRegistry(t *testing.T) {
	regA, _ := newTestNATS(t, "closed")

	require.NoError(t, regA.Close())

	_, err := regA.Register("stream-1", newEchoInbox())
	require.ErrorIs(t, err, types.ErrRegistryClosed)

	_, err = regA.Resolve(context.Background(), "stream-1", time.Second)
	require.ErrorIs(t, err, types.ErrRegistryClosed)

	err = regA.Broadcast(context.Background(), types.NewNotify([]string{"e1"}))
	require.ErrorIs(t, err, types.ErrRegistryClosed)

	// Close is idempotent.
	require.NoError(t, regA.Close())
}
