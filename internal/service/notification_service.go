package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Baaaki/foodgram/internal/broker"
	"github.com/Baaaki/foodgram/internal/models"
	"github.com/Baaaki/foodgram/internal/repository"
	"github.com/Baaaki/foodgram/pkg/logger"
	"go.uber.org/zap"
)

// NotificationService publishes follow and new-recipe events. Delivery is
// best effort: failures are logged and never fail the triggering request.
type NotificationService struct {
	broker  broker.NotificationBroker
	subRepo *repository.SubscriptionRepository
}

// NewNotificationService accepts a nil broker, which disables notifications.
func NewNotificationService(b broker.NotificationBroker, subRepo *repository.SubscriptionRepository) *NotificationService {
	return &NotificationService{broker: b, subRepo: subRepo}
}

// Subscribe opens userID's notification stream.
func (s *NotificationService) Subscribe(ctx context.Context, userID uint) (*broker.Subscription, error) {
	if s.broker == nil {
		return nil, fmt.Errorf("notifications are disabled")
	}
	return s.broker.Subscribe(ctx, userID)
}

// NotifyFollow tells author that follower subscribed.
func (s *NotificationService) NotifyFollow(ctx context.Context, author, follower *models.User) {
	s.publish(ctx, author.ID, broker.Notification{
		Type:          broker.EventFollow,
		ActorID:       follower.ID,
		ActorUsername: follower.Username,
		Message:       fmt.Sprintf("%s subscribed to you", follower.Username),
		CreatedAt:     time.Now().UTC(),
	})
}

// NotifyNewRecipe tells every subscriber of the author about recipe.
func (s *NotificationService) NotifyNewRecipe(ctx context.Context, author *models.User, recipe *models.Recipe) {
	if s.broker == nil {
		return
	}

	subscriberIDs, err := s.subRepo.SubscriberIDs(ctx, author.ID)
	if err != nil {
		logger.Log.Warn("Failed to load subscribers for notification",
			zap.Uint("author_id", author.ID),
			zap.Error(err),
		)
		return
	}

	n := broker.Notification{
		Type:          broker.EventRecipe,
		ActorID:       author.ID,
		ActorUsername: author.Username,
		RecipeID:      recipe.ID,
		RecipeName:    recipe.Name,
		Message:       fmt.Sprintf("%s published %q", author.Username, recipe.Name),
		CreatedAt:     time.Now().UTC(),
	}
	for _, id := range subscriberIDs {
		s.publish(ctx, id, n)
	}

	logger.Log.Debug("Recipe notification fanned out",
		zap.Uint("recipe_id", recipe.ID),
		zap.Int("subscribers", len(subscriberIDs)),
	)
}

func (s *NotificationService) publish(ctx context.Context, userID uint, n broker.Notification) {
	if s.broker == nil {
		return
	}
	if err := s.broker.Publish(ctx, userID, n); err != nil {
		logger.Log.Warn("Failed to publish notification",
			zap.Uint("user_id", userID),
			zap.String("type", string(n.Type)),
			zap.Error(err),
		)
	}
}
