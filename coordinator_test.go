package longpoll

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/longpoll/internal/streamid"
	"github.com/arloliu/longpoll/types"
)

func startTestCoordinator(t *testing.T, opts ...Option) *Coordinator {
	t.Helper()

	cfg := TestConfig()
	coord, err := NewCoordinator(&cfg, allowPrefixFilter, opts...)
	require.NoError(t, err)
	require.NoError(t, coord.Start(context.Background()))

	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = coord.Stop(stopCtx)
	})

	return coord
}

func TestNewCoordinator(t *testing.T) {
	t.Run("requires a visibility filter", func(t *testing.T) {
		cfg := TestConfig()
		_, err := NewCoordinator(&cfg, nil)
		require.ErrorIs(t, err, ErrFilterRequired)
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		cfg := TestConfig()
		cfg.GracePeriod = cfg.RefreshInterval + time.Second
		_, err := NewCoordinator(&cfg, allowPrefixFilter)
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("defaults empty config", func(t *testing.T) {
		cfg := Config{}
		coord, err := NewCoordinator(&cfg, allowPrefixFilter)
		require.NoError(t, err)
		require.NotNil(t, coord)
		require.Equal(t, DefaultConfig(), cfg)
	})
}

func TestCoordinator_Lifecycle(t *testing.T) {
	cfg := TestConfig()
	coord, err := NewCoordinator(&cfg, allowPrefixFilter)
	require.NoError(t, err)

	ctx := context.Background()

	// Operations before Start fail fast.
	_, err = coord.CreateStream(ctx, nil)
	require.ErrorIs(t, err, ErrNotStarted)
	_, err = coord.Poll(ctx, "aaaaaaaaaaaaaaaaaaaa")
	require.ErrorIs(t, err, ErrNotStarted)
	require.ErrorIs(t, coord.Notify(ctx, []string{"e1"}), ErrNotStarted)
	require.ErrorIs(t, coord.Stop(ctx), ErrNotStarted)

	require.NoError(t, coord.Start(ctx))
	require.ErrorIs(t, coord.Start(ctx), ErrAlreadyStarted)

	require.NoError(t, coord.Stop(ctx))
	require.ErrorIs(t, coord.Stop(ctx), ErrNotStarted)
}

func TestCoordinator_CreateStream(t *testing.T) {
	coord := startTestCoordinator(t)

	id, err := coord.CreateStream(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, id, streamid.Length)
	require.True(t, streamid.Valid(id))
	require.Equal(t, 1, coord.ActiveSessions())

	// IDs are unique per stream.
	id2, err := coord.CreateStream(context.Background(), nil)
	require.NoError(t, err)
	require.NotEqual(t, id, id2)
	require.Equal(t, 2, coord.ActiveSessions())
}

func TestCoordinator_PollValidation(t *testing.T) {
	coord := startTestCoordinator(t)
	ctx := context.Background()

	t.Run("rejects malformed IDs without resolving", func(t *testing.T) {
		for _, bad := range []string{"", "short", "aaaaaaaaaaaaaaaaaaa!", "aaaaaaaaaaaaaaaaaaaaa"} {
			start := time.Now()
			_, err := coord.Poll(ctx, bad)
			require.ErrorIs(t, err, ErrInvalidStreamID, "id %q", bad)
			require.Less(t, time.Since(start), 50*time.Millisecond,
				"invalid IDs must fail before any resolution attempt")
		}
	})

	t.Run("well-formed unknown ID is not found", func(t *testing.T) {
		_, err := coord.Poll(ctx, "aaaaaaaaaaaaaaaaaaaa")
		require.ErrorIs(t, err, ErrStreamNotFound)
	})
}

func TestCoordinator_PollEmptyBatch(t *testing.T) {
	coord := startTestCoordinator(t)
	ctx := context.Background()

	id, err := coord.CreateStream(ctx, nil)
	require.NoError(t, err)

	start := time.Now()
	batch, err := coord.Poll(ctx, id)
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.NotNil(t, batch, "an empty batch is a real reply, not an absent one")
	require.Empty(t, batch)
	require.GreaterOrEqual(t, elapsed, coord.cfg.RefreshInterval-20*time.Millisecond)
	require.Less(t, elapsed, 2*coord.cfg.RefreshInterval)
}

func TestCoordinator_NotifyThenPoll(t *testing.T) {
	coord := startTestCoordinator(t)
	ctx := context.Background()

	id, err := coord.CreateStream(ctx, nil)
	require.NoError(t, err)

	// "ok-e1" passes the filter, "secret-e2" does not.
	require.NoError(t, coord.Notify(ctx, []string{"ok-e1", "secret-e2"}))

	// The batch was buffered while idle, so the next poll drains it after
	// the grace period instead of waiting out the refresh ceiling.
	start := time.Now()
	batch, err := coord.Poll(ctx, id)
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Equal(t, []string{"ok-e1"}, batch)
	require.Less(t, elapsed, coord.cfg.RefreshInterval)
}

func TestCoordinator_NotifyReachesAllStreams(t *testing.T) {
	coord := startTestCoordinator(t)
	ctx := context.Background()

	id1, err := coord.CreateStream(ctx, nil)
	require.NoError(t, err)
	id2, err := coord.CreateStream(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, coord.Notify(ctx, []string{"ok-shared"}))

	for _, id := range []string{id1, id2} {
		batch, err := coord.Poll(ctx, id)
		require.NoError(t, err)
		require.Equal(t, []string{"ok-shared"}, batch)
	}
}

func TestCoordinator_KeepAliveExpiry(t *testing.T) {
	coord := startTestCoordinator(t)
	ctx := context.Background()

	id, err := coord.CreateStream(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 1, coord.ActiveSessions())

	// Never polled: the session expires after KeepAliveTTL and withdraws
	// its registration, so the ID stops resolving.
	require.Eventually(t, func() bool {
		return coord.ActiveSessions() == 0
	}, 3*coord.cfg.KeepAliveTTL, 20*time.Millisecond)

	_, err = coord.Poll(ctx, id)
	require.ErrorIs(t, err, ErrStreamNotFound)
}

func TestCoordinator_StopTerminatesSessions(t *testing.T) {
	cfg := TestConfig()
	coord, err := NewCoordinator(&cfg, allowPrefixFilter)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, coord.Start(ctx))

	for i := 0; i < 3; i++ {
		_, err := coord.CreateStream(ctx, nil)
		require.NoError(t, err)
	}
	require.Equal(t, 3, coord.ActiveSessions())

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, coord.Stop(stopCtx))
	require.Equal(t, 0, coord.ActiveSessions())
}

func TestCoordinator_Hooks(t *testing.T) {
	created := make(chan string, 1)
	delivered := make(chan []string, 1)
	expired := make(chan string, 1)

	coord := startTestCoordinator(t, WithHooks(&types.Hooks{
		OnStreamCreated: func(_ context.Context, id string) error {
			created <- id
			return nil
		},
		OnBatchDelivered: func(_ context.Context, _ string, batch []string) error {
			delivered <- batch
			return nil
		},
		OnSessionExpired: func(_ context.Context, id string) error {
			expired <- id
			return nil
		},
	}))

	ctx := context.Background()
	id, err := coord.CreateStream(ctx, nil)
	require.NoError(t, err)

	select {
	case hookID := <-created:
		require.Equal(t, id, hookID)
	case <-time.After(time.Second):
		t.Fatal("OnStreamCreated hook not invoked")
	}

	require.NoError(t, coord.Notify(ctx, []string{"ok-1"}))
	batch, err := coord.Poll(ctx, id)
	require.NoError(t, err)
	require.Equal(t, []string{"ok-1"}, batch)

	select {
	case hookBatch := <-delivered:
		require.Equal(t, []string{"ok-1"}, hookBatch)
	case <-time.After(time.Second):
		t.Fatal("OnBatchDelivered hook not invoked")
	}

	select {
	case hookID := <-expired:
		require.Equal(t, id, hookID)
	case <-time.After(3 * coord.cfg.KeepAliveTTL):
		t.Fatal("OnSessionExpired hook not invoked")
	}
}
