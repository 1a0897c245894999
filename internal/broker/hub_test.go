package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversToAllSubscribers(t *testing.T) {
	h := NewHub(0)
	ctx := context.Background()
	ch := Channel(DefaultLocationPrefix, "u1")

	s1, err := h.Subscribe(ctx, ch)
	require.NoError(t, err)
	s2, err := h.Subscribe(ctx, ch)
	require.NoError(t, err)
	other, err := h.Subscribe(ctx, Channel(DefaultLocationPrefix, "u2"))
	require.NoError(t, err)

	require.NoError(t, h.Publish(ctx, ch, []byte("hello")))

	assert.Equal(t, []byte("hello"), <-s1.Messages())
	assert.Equal(t, []byte("hello"), <-s2.Messages())
	select {
	case <-other.Messages():
		t.Fatal("message leaked to another channel")
	default:
	}
}

func TestHubDropsWhenSubscriberIsFull(t *testing.T) {
	h := NewHub(2)
	ctx := context.Background()
	sub, err := h.Subscribe(ctx, "c")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, h.Publish(ctx, "c", []byte{byte(i)}))
	}
	assert.EqualValues(t, 3, h.Dropped())
	assert.Equal(t, []byte{0}, <-sub.Messages())
	assert.Equal(t, []byte{1}, <-sub.Messages())
}

func TestHubCloseClosesChannel(t *testing.T) {
	h := NewHub(0)
	ctx := context.Background()
	sub, err := h.Subscribe(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 1, h.Subscribers("c"))

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	assert.Zero(t, h.Subscribers("c"))

	select {
	case _, ok := <-sub.Messages():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}

	// 没有订阅者时发布不报错
	assert.NoError(t, h.Publish(ctx, "c", []byte("x")))
}

func TestHubRespectsCanceledContext(t *testing.T) {
	h := NewHub(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Subscribe(ctx, "c")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, h.Publish(ctx, "c", nil), context.Canceled)
}

func TestChannel(t *testing.T) {
	assert.Equal(t, "channel:chat:u1", Channel(DefaultChatPrefix, "u1"))
}
