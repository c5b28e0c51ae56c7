package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xuxxeth/sx/internal/ir"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus(nil)
	all := bus.Subscribe(4)
	likes := bus.Subscribe(4, ir.KindPostLiked)
	defer all.Close()
	defer likes.Close()

	ctx := context.Background()
	require.NoError(t, bus.Emit(ctx, event(t, 1, ir.Followed{Follower: alice, Following: bob})))
	require.NoError(t, bus.Emit(ctx, event(t, 2, ir.PostLiked{Liker: alice, PostAuthor: bob, PostID: 1})))

	assert.Equal(t, int64(1), (<-all.Events()).Seq)
	assert.Equal(t, int64(2), (<-all.Events()).Seq)

	got := <-likes.Events()
	assert.Equal(t, ir.KindPostLiked, got.Kind)
	assert.Empty(t, likes.Events())
}

func TestBusNeverBlocks(t *testing.T) {
	bus := NewBus(nil)
	sub := bus.Subscribe(1)
	defer sub.Close()

	ctx := context.Background()
	for seq := int64(1); seq <= 3; seq++ {
		require.NoError(t, bus.Emit(ctx, event(t, seq, ir.Followed{Follower: alice, Following: bob})))
	}

	assert.Equal(t, uint64(2), bus.Dropped())
	assert.Equal(t, int64(1), (<-sub.Events()).Seq)
}

func TestSubscriptionClose(t *testing.T) {
	bus := NewBus(nil)
	sub := bus.Subscribe(1)
	sub.Close()
	sub.Close()

	_, open := <-sub.Events()
	assert.False(t, open)

	// Emitting after the only subscriber left is fine.
	require.NoError(t, bus.Emit(context.Background(), event(t, 1, ir.Followed{})))
	assert.Zero(t, bus.Dropped())
}
