package broker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroker(t *testing.T) *RedisNotificationBroker {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisNotificationBroker(client)
}

func TestRedisNotificationBroker_DeliversToRecipientOnly(t *testing.T) {
	b := newTestBroker(t)
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, 7)
	require.NoError(t, err)
	defer sub.Close()

	other, err := b.Subscribe(ctx, 8)
	require.NoError(t, err)
	defer other.Close()

	sent := Notification{Type: EventFollow, ActorID: 3, ActorUsername: "chef", Message: "chef followed you"}
	require.NoError(t, b.Publish(ctx, 7, sent))

	select {
	case got := <-sub.C:
		assert.Equal(t, EventFollow, got.Type)
		assert.Equal(t, uint(3), got.ActorID)
		assert.Equal(t, "chef followed you", got.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not delivered")
	}

	select {
	case n := <-other.C:
		t.Fatalf("unexpected notification for another user: %+v", n)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRedisNotificationBroker_CloseEndsStream(t *testing.T) {
	b := newTestBroker(t)

	sub, err := b.Subscribe(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, sub.Close())

	select {
	case _, ok := <-sub.C:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream was not closed")
	}
}

func TestRedisNotificationBroker_CloseWithUnreadBacklog(t *testing.T) {
	b := newTestBroker(t)
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, 5)
	require.NoError(t, err)

	for i := 0; i < subscriptionBuffer+50; i++ {
		require.NoError(t, b.Publish(ctx, 5, Notification{Type: EventRecipe, RecipeID: uint(i + 1)}))
	}

	// the forwarder is now parked on a full buffer
	require.Eventually(t, func() bool {
		return len(sub.C) == subscriptionBuffer
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	deadline := time.After(2 * time.Second)
	received := 0
	for {
		select {
		case _, ok := <-sub.C:
			if !ok {
				assert.LessOrEqual(t, received, subscriptionBuffer+1)
				return
			}
			received++
		case <-deadline:
			t.Fatal("stream was not closed after Close")
		}
	}
}
