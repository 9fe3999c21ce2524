package hooks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/longpoll/types"
)

func TestNewNop(t *testing.T) {
	h := NewNop()
	ctx := context.Background()

	require.NoError(t, h.OnStreamCreated(ctx, "stream"))
	require.NoError(t, h.OnBatchDelivered(ctx, "stream", []string{"e1"}))
	require.NoError(t, h.OnSessionExpired(ctx, "stream"))
}

func TestFillNop(t *testing.T) {
	t.Run("fills only nil callbacks", func(t *testing.T) {
		called := false
		h := types.Hooks{
			OnStreamCreated: func(_ context.Context, _ string) error {
				called = true
				return nil
			},
		}

		FillNop(&h)

		require.NoError(t, h.OnStreamCreated(context.Background(), "s"))
		require.True(t, called)
		require.NotNil(t, h.OnBatchDelivered)
		require.NotNil(t, h.OnSessionExpired)
	})
}
