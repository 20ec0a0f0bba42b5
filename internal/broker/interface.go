package broker

import (
	"context"
	"sync"
	"time"
)

// subscriptionBuffer is how many notifications wait for a slow reader.
const subscriptionBuffer = 100

type EventType string

const (
	EventFollow EventType = "follow"
	EventRecipe EventType = "recipe"
)

// Notification is delivered to one user. Notifications are not persisted:
// a user with no open stream simply misses them.
type Notification struct {
	Type          EventType `json:"type"`
	ActorID       uint      `json:"actor_id"`
	ActorUsername string    `json:"actor_username"`
	RecipeID      uint      `json:"recipe_id,omitempty"`
	RecipeName    string    `json:"recipe_name,omitempty"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"created_at"`
}

// NotificationBroker fans notifications out to per-user streams.
type NotificationBroker interface {
	Publish(ctx context.Context, userID uint, n Notification) error
	Subscribe(ctx context.Context, userID uint) (*Subscription, error)
	Close() error
}

// Subscription is one live stream of a user's notifications.
// C is closed after Close, even when nobody is reading it.
type Subscription struct {
	C     <-chan Notification
	stop  chan struct{}
	once  sync.Once
	close func() error
}

func newSubscription(c <-chan Notification, stop chan struct{}, closeFn func() error) *Subscription {
	return &Subscription{C: c, stop: stop, close: closeFn}
}

// Close is safe to call more than once.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.stop)
		err = s.close()
	})
	return err
}
