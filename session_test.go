package longpoll

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/longpoll/internal/hooks"
	"github.com/arloliu/longpoll/internal/logging"
	"github.com/arloliu/longpoll/internal/metrics"
	"github.com/arloliu/longpoll/types"
)

// allowPrefixFilter keeps IDs starting with "ok" and drops the rest.
var allowPrefixFilter = types.VisibilityFilterFunc(
	func(_ context.Context, _ types.AccessContext, ids []string) ([]string, error) {
		var visible []string
		for _, id := range ids {
			if strings.HasPrefix(id, "ok") {
				visible = append(visible, id)
			}
		}

		return visible, nil
	},
)

type sessionHarness struct {
	s       *session
	expired chan bool
}

func startTestSession(t *testing.T, cfg Config, filter types.VisibilityFilter) *sessionHarness {
	t.Helper()

	h := &sessionHarness{expired: make(chan bool, 1)}
	nopHooks := hooks.NewNop()
	h.s = newSession(
		"test-stream", "access-ctx", cfg, filter,
		logging.NewNop(), metrics.NewNop(), nopHooks,
		context.Background(),
		func(_ *session, expired bool) { h.expired <- expired },
	)
	go h.s.run()

	t.Cleanup(func() {
		h.s.shutdown()
		select {
		case <-h.s.terminated():
		case <-time.After(2 * time.Second):
		}
	})

	return h
}

// poll issues a Poll input and returns the channel its batch arrives on.
func (h *sessionHarness) poll() <-chan []string {
	ch := make(chan []string, 1)
	h.s.Deliver(types.NewPoll(), func(m types.Message) error {
		ch <- m.EventIDs
		return nil
	})

	return ch
}

func (h *sessionHarness) notify(ids ...string) {
	h.s.Deliver(types.NewNotify(ids), nil)
}

func waitBatch(t *testing.T, ch <-chan []string, within time.Duration) []string {
	t.Helper()

	select {
	case batch := <-ch:
		return batch
	case <-time.After(within):
		t.Fatalf("no batch delivered within %v", within)
		return nil
	}
}

func TestSession_EmptyPollDeliversAfterRefresh(t *testing.T) {
	cfg := TestConfig()
	h := startTestSession(t, cfg, allowPrefixFilter)

	start := time.Now()
	batch := waitBatch(t, h.poll(), 2*cfg.RefreshInterval)
	elapsed := time.Since(start)

	require.Empty(t, batch)
	require.GreaterOrEqual(t, elapsed, cfg.RefreshInterval-20*time.Millisecond,
		"empty batch must not be delivered before the refresh ceiling")
	require.Less(t, elapsed, 2*cfg.RefreshInterval)
}

func TestSession_NotifyDeliversAfterGrace(t *testing.T) {
	cfg := TestConfig()
	h := startTestSession(t, cfg, allowPrefixFilter)

	ch := h.poll()
	time.Sleep(50 * time.Millisecond)

	notified := time.Now()
	h.notify("ok-1", "ok-2")
	batch := waitBatch(t, ch, cfg.MaxWait)
	elapsed := time.Since(notified)

	require.Equal(t, []string{"ok-1", "ok-2"}, batch)
	require.Less(t, elapsed, cfg.RefreshInterval,
		"grace delivery must beat the refresh ceiling once an event arrived")
}

func TestSession_MaxWaitCapsContinuousArrivals(t *testing.T) {
	cfg := TestConfig()
	h := startTestSession(t, cfg, allowPrefixFilter)

	ch := h.poll()

	// Keep notifying faster than the grace period so the quiet-period
	// debounce alone would never fire; delivery must come from the MaxWait
	// ceiling instead.
	firstNotify := time.Now()
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.GracePeriod / 2)
		defer ticker.Stop()
		i := 0
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				h.notify("ok-flow")
				i++
			}
		}
	}()

	batch := waitBatch(t, ch, 2*cfg.MaxWait)
	close(stop)
	elapsed := time.Since(firstNotify)

	require.NotEmpty(t, batch)
	require.GreaterOrEqual(t, elapsed, cfg.MaxWait-50*time.Millisecond,
		"constant arrivals must be batched up to the MaxWait ceiling")
	require.Less(t, elapsed, cfg.MaxWait+300*time.Millisecond)
}

func TestSession_IdleNotifyBuffersUntilNextPoll(t *testing.T) {
	cfg := TestConfig()
	h := startTestSession(t, cfg, allowPrefixFilter)

	// No waiter: the IDs are filtered and buffered, no timers touched.
	h.notify("ok-a", "dropped", "ok-b")
	h.notify("ok-a")
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	batch := waitBatch(t, h.poll(), cfg.RefreshInterval)
	elapsed := time.Since(start)

	// Duplicates recur, order is preserved, invisible IDs are gone.
	require.Equal(t, []string{"ok-a", "ok-b", "ok-a"}, batch)
	require.Less(t, elapsed, cfg.RefreshInterval,
		"a pre-buffered batch is delivered on the grace deadline, not the refresh ceiling")
}

func TestSession_SecondPollSupersedesFirst(t *testing.T) {
	cfg := TestConfig()
	h := startTestSession(t, cfg, allowPrefixFilter)

	first := h.poll()
	time.Sleep(20 * time.Millisecond)
	second := h.poll()

	h.notify("ok-1")

	batch := waitBatch(t, second, cfg.MaxWait)
	require.Equal(t, []string{"ok-1"}, batch)

	// The displaced waiter must never receive anything.
	select {
	case batch := <-first:
		t.Fatalf("superseded waiter received batch %v", batch)
	case <-time.After(2 * cfg.RefreshInterval):
	}
}

func TestSession_InvisibleNotifyChangesNothing(t *testing.T) {
	cfg := TestConfig()
	h := startTestSession(t, cfg, allowPrefixFilter)

	start := time.Now()
	ch := h.poll()
	time.Sleep(50 * time.Millisecond)

	// Entirely filtered out: no state change, no timer re-arming, so the
	// reply still arrives at the refresh ceiling and is empty.
	h.notify("hidden-1", "hidden-2")

	batch := waitBatch(t, ch, 2*cfg.RefreshInterval)
	elapsed := time.Since(start)

	require.Empty(t, batch)
	require.GreaterOrEqual(t, elapsed, cfg.RefreshInterval-20*time.Millisecond)
}

func TestSession_FilterErrorAbortsTransition(t *testing.T) {
	cfg := TestConfig()

	var calls atomic.Int32
	filter := types.VisibilityFilterFunc(
		func(_ context.Context, _ types.AccessContext, ids []string) ([]string, error) {
			if calls.Add(1) == 1 {
				return nil, errors.New("backend unavailable")
			}

			return ids, nil
		},
	)

	h := startTestSession(t, cfg, filter)

	// First notify fails all-or-nothing: nothing is buffered.
	h.notify("lost-1", "lost-2")
	// Second notify succeeds.
	h.notify("kept-1")
	time.Sleep(20 * time.Millisecond)

	batch := waitBatch(t, h.poll(), cfg.RefreshInterval)
	require.Equal(t, []string{"kept-1"}, batch)
}

func TestSession_FilterReceivesAccessContext(t *testing.T) {
	cfg := TestConfig()

	var seen atomic.Value
	filter := types.VisibilityFilterFunc(
		func(_ context.Context, access types.AccessContext, ids []string) ([]string, error) {
			seen.Store(access)
			return ids, nil
		},
	)

	h := startTestSession(t, cfg, filter)
	h.notify("e1")

	require.Eventually(t, func() bool {
		v, _ := seen.Load().(string)
		return v == "access-ctx"
	}, time.Second, 10*time.Millisecond, "filter must receive the session's fixed access context")
}

func TestSession_KeepAliveExpiryTerminates(t *testing.T) {
	cfg := TestConfig()
	cfg.KeepAliveTTL = 200 * time.Millisecond
	h := startTestSession(t, cfg, allowPrefixFilter)

	select {
	case expired := <-h.expired:
		require.True(t, expired, "keep-alive termination must report expiry")
	case <-time.After(5 * cfg.KeepAliveTTL):
		t.Fatal("session did not expire without polls")
	}

	// A delivery after termination is dropped, not processed.
	h.notify("ok-late")
}

func TestSession_KeepAliveExpiryAbandonsWaiter(t *testing.T) {
	// Deliberately inverted timings: the keep-alive fires while a waiter is
	// outstanding. The waiter must receive no reply at all; its own
	// request-level timeout is responsible for covering this.
	cfg := TestConfig()
	cfg.RefreshInterval = 5 * time.Second
	cfg.MaxWait = 6 * time.Second
	cfg.KeepAliveTTL = 150 * time.Millisecond

	h := startTestSession(t, cfg, allowPrefixFilter)
	ch := h.poll()

	select {
	case expired := <-h.expired:
		require.True(t, expired)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not expire")
	}

	select {
	case batch := <-ch:
		t.Fatalf("abandoned waiter received batch %v", batch)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestSession_PollReArmsKeepAlive(t *testing.T) {
	cfg := TestConfig()
	cfg.KeepAliveTTL = 400 * time.Millisecond
	h := startTestSession(t, cfg, allowPrefixFilter)

	// Poll three times; each re-arms the keep-alive, so the session
	// survives well past the original TTL.
	for i := 0; i < 3; i++ {
		waitBatch(t, h.poll(), 2*cfg.RefreshInterval)
	}

	select {
	case <-h.expired:
		t.Fatal("session expired despite active polling")
	default:
	}
}

func TestSession_TransmittedCommitMarkerIsIgnored(t *testing.T) {
	cfg := TestConfig()
	h := startTestSession(t, cfg, allowPrefixFilter)

	// A commit marker arriving over the wire is out-of-band traffic: it
	// must neither deliver a batch nor disturb the pending buffer.
	h.notify("ok-1")
	h.s.Deliver(types.NewCommit(), nil)
	time.Sleep(20 * time.Millisecond)

	batch := waitBatch(t, h.poll(), cfg.RefreshInterval)
	require.Equal(t, []string{"ok-1"}, batch)
}
