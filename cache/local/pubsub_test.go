package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan *LocalMessage) *LocalMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
		return nil
	}
}

func TestPubSub_RoomChannels(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "room:alice", "announce")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "room:bob", "ignored"))
	require.NoError(t, ps.Publish(ctx, "room:alice", `{"type":"kill"}`))
	require.NoError(t, ps.Publish(ctx, "announce", "restart"))

	msg := recv(t, ch)
	assert.Equal(t, "room:alice", msg.Channel)
	assert.Equal(t, `{"type":"kill"}`, msg.Payload)
	assert.Equal(t, "announce", recv(t, ch).Channel)
}

func TestPubSub_DuplicateChannelsDeliverOnce(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()
	ch, cancel, err := ps.Subscribe(ctx, "room:a", "room:a")
	require.NoError(t, err)
	defer cancel()

	assert.Equal(t, 1, ps.Subscribers("room:a"))
	require.NoError(t, ps.Publish(ctx, "room:a", "x"))
	recv(t, ch)
	assert.Empty(t, ch)
}

func TestPubSub_CancelIsIdempotent(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "room:a")
	require.NoError(t, err)
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after cancel")
	assert.Zero(t, ps.Subscribers("room:a"))
	assert.NoError(t, ps.Publish(ctx, "room:a", "msg"))
}

func TestPubSub_MultipleSubscribers(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	ch1, cancel1, _ := ps.Subscribe(ctx, "room:a")
	ch2, cancel2, _ := ps.Subscribe(ctx, "room:a")
	defer cancel1()
	defer cancel2()
	assert.Equal(t, 2, ps.Subscribers("room:a"))

	require.NoError(t, ps.Publish(ctx, "room:a", "world"))
	assert.Equal(t, "world", recv(t, ch1).Payload)
	assert.Equal(t, "world", recv(t, ch2).Payload)
}

func TestPubSub_SlowSubscriberDrops(t *testing.T) {
	ps := NewPubSub(2)
	ctx := context.Background()
	_, cancel, _ := ps.Subscribe(ctx, "room:a")
	defer cancel()

	for range 5 {
		require.NoError(t, ps.Publish(ctx, "room:a", "e"))
	}
	assert.Equal(t, int64(3), ps.Dropped())
}

func TestPubSub_Close(t *testing.T) {
	ps := NewPubSub(4)
	ctx := context.Background()
	ch, cancel, err := ps.Subscribe(ctx, "room:a")
	require.NoError(t, err)

	require.NoError(t, ps.Close())
	_, ok := <-ch
	assert.False(t, ok)
	cancel()

	assert.ErrorIs(t, ps.Publish(ctx, "room:a", "x"), ErrClosed)
	_, _, err = ps.Subscribe(ctx, "room:a")
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, ps.Close())
}

func TestPubSub_ConcurrentPublishAndCancel(t *testing.T) {
	ps := NewPubSub(1)
	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 1000 {
			_ = ps.Publish(ctx, "room:a", "x")
		}
	}()
	for range 100 {
		_, cancel, err := ps.Subscribe(ctx, "room:a")
		require.NoError(t, err)
		cancel()
	}
	<-done
}
