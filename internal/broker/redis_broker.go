package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Baaaki/foodgram/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisNotificationBroker implements NotificationBroker over Redis pub/sub,
// one channel per recipient.
type RedisNotificationBroker struct {
	client *redis.Client
}

func NewRedisNotificationBroker(client *redis.Client) *RedisNotificationBroker {
	return &RedisNotificationBroker{client: client}
}

func channelFor(userID uint) string {
	return fmt.Sprintf("notifications:%d", userID)
}

func (r *RedisNotificationBroker) Publish(ctx context.Context, userID uint, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}

	return r.client.Publish(ctx, channelFor(userID), data).Err()
}

// Subscribe returns once Redis has confirmed the subscription, so anything
// published after it returns is delivered.
func (r *RedisNotificationBroker) Subscribe(ctx context.Context, userID uint) (*Subscription, error) {
	pubsub := r.client.Subscribe(ctx, channelFor(userID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	ch := make(chan Notification, subscriptionBuffer)
	stop := make(chan struct{})

	go func() {
		defer close(ch)

		msgs := pubsub.Channel()
		for {
			var redisMsg *redis.Message
			select {
			case <-stop:
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				redisMsg = m
			}

			var n Notification
			if err := json.Unmarshal([]byte(redisMsg.Payload), &n); err != nil {
				logger.Log.Warn("Dropping malformed notification",
					zap.String("channel", redisMsg.Channel),
					zap.Error(err),
				)
				continue
			}

			// a reader that went away must not park this goroutine
			select {
			case ch <- n:
			case <-stop:
				return
			}
		}
	}()

	return newSubscription(ch, stop, pubsub.Close), nil
}

func (r *RedisNotificationBroker) Close() error {
	return r.client.Close()
}
